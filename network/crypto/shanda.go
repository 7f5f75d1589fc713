package crypto

import "math/bits"

// shanda 在AES之前的一层自定义字节混淆，6轮，奇偶轮方向相反
// 无状态，只依赖数据长度

func rol(b byte, n int) byte {
	return bits.RotateLeft8(b, n&7)
}

func ror(b byte, n int) byte {
	return bits.RotateLeft8(b, -(n & 7))
}

func shandaEncrypt(data []byte) {
	size := len(data)
	for round := 0; round < 6; round++ {
		var remembered byte
		counter := byte(size)
		if round%2 == 0 {
			for i := 0; i < size; i++ {
				cur := rol(data[i], 3)
				cur += counter
				cur ^= remembered
				remembered = cur
				cur = ror(cur, int(counter))
				cur = ^cur
				cur += 0x48
				counter--
				data[i] = cur
			}
		} else {
			for i := size - 1; i >= 0; i-- {
				cur := rol(data[i], 4)
				cur += counter
				cur ^= remembered
				remembered = cur
				cur ^= 0x13
				cur = ror(cur, 3)
				counter--
				data[i] = cur
			}
		}
	}
}

func shandaDecrypt(data []byte) {
	size := len(data)
	for round := 1; round <= 6; round++ {
		var remembered, next byte
		counter := byte(size)
		if round%2 == 0 {
			for i := 0; i < size; i++ {
				cur := data[i] - 0x48
				cur = ^cur
				cur = rol(cur, int(counter))
				next = cur
				cur ^= remembered
				remembered = next
				cur -= counter
				cur = ror(cur, 3)
				data[i] = cur
				counter--
			}
		} else {
			for i := size - 1; i >= 0; i-- {
				cur := rol(data[i], 3)
				cur ^= 0x13
				next = cur
				cur ^= remembered
				remembered = next
				cur -= counter
				cur = ror(cur, 4)
				data[i] = cur
				counter--
			}
		}
	}
}

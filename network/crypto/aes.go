package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"sync"

	"go.uber.org/atomic"
)

const (
	HeaderSize = 4

	firstChunk = 1456
	chunk      = 1460
)

// userKey 只有每4个字节的第一个有效
var userKey = [32]byte{
	0x13, 0, 0, 0, 0x08, 0, 0, 0, 0x06, 0, 0, 0, 0xB4, 0, 0, 0,
	0x1B, 0, 0, 0, 0x0F, 0, 0, 0, 0x33, 0, 0, 0, 0x52, 0, 0, 0,
}

type Side int

const (
	ServerSide Side = iota
	ClientSide
)

// AESConfig 流加密参数，RecvIV/SendIV是从本端视角看的
type AESConfig struct {
	Side       Side
	Version    uint16
	Subversion string
	Locale     byte
	RecvIV     [4]byte
	SendIV     [4]byte
}

// AESCryptograph Shanda + AES-OFB + iv演进
// 收发两个方向各自持有iv，Encrypt和Decrypt之间不需要互斥，但同一方向必须串行
// ------------------------------
// | header(4) | ciphertext(len) |
// ------------------------------
type AESCryptograph struct {
	conf        AESConfig
	block       cipher.Block
	sendVersion uint16
	recvVersion uint16

	sendLock sync.Mutex
	sendIV   [4]byte
	recvLock sync.Mutex
	recvIV   [4]byte

	closed atomic.Bool
}

func NewAESCryptograph(conf AESConfig) (*AESCryptograph, error) {
	block, err := aes.NewCipher(userKey[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: init aes: %w", err)
	}
	c := &AESCryptograph{
		conf:   conf,
		block:  block,
		sendIV: conf.SendIV,
		recvIV: conf.RecvIV,
	}
	// 服务端发出的包用取反后的版本号
	if conf.Side == ServerSide {
		c.sendVersion, c.recvVersion = ^conf.Version, conf.Version
	} else {
		c.sendVersion, c.recvVersion = conf.Version, ^conf.Version
	}
	return c, nil
}

// Mirror 生成对端使用的cryptograph，iv取当前状态
func (c *AESCryptograph) Mirror() (*AESCryptograph, error) {
	c.sendLock.Lock()
	sendIV := c.sendIV
	c.sendLock.Unlock()
	c.recvLock.Lock()
	recvIV := c.recvIV
	c.recvLock.Unlock()

	conf := c.conf
	conf.Side = ServerSide
	if c.conf.Side == ServerSide {
		conf.Side = ClientSide
	}
	conf.SendIV, conf.RecvIV = recvIV, sendIV
	return NewAESCryptograph(conf)
}

func (c *AESCryptograph) HeaderSize() int {
	return HeaderSize
}

// DeriveLength 头部前后两个u16异或得到长度
func (c *AESCryptograph) DeriveLength(header []byte) int {
	return DeriveLength(header)
}

func DeriveLength(header []byte) int {
	return int(binary.LittleEndian.Uint16(header) ^ binary.LittleEndian.Uint16(header[2:]))
}

func makeHeader(length int, iv [4]byte, version uint16) []byte {
	mixed := (uint16(iv[3]) | uint16(iv[2])<<8) ^ version
	l := uint16(length)
	xored := mixed ^ (l<<8 | l>>8)
	return []byte{byte(mixed >> 8), byte(mixed), byte(xored >> 8), byte(xored)}
}

func checkHeader(header []byte, iv [4]byte, version uint16) bool {
	return header[0]^iv[2] == byte(version>>8) && header[1]^iv[3] == byte(version)
}

// transform OFB模式，iv重复4次作为初始块，每个chunk重新开始
func (c *AESCryptograph) transform(data []byte, iv [4]byte) {
	var stream [16]byte
	length := firstChunk
	for start := 0; start < len(data); start += length {
		if start > 0 {
			length = chunk
		}
		end := start + length
		if end > len(data) {
			end = len(data)
		}
		for i := range stream {
			stream[i] = iv[i%4]
		}
		for x := start; x < end; x++ {
			offset := (x - start) % 16
			if offset == 0 {
				c.block.Encrypt(stream[:], stream[:])
			}
			data[x] ^= stream[offset]
		}
	}
}

func (c *AESCryptograph) Encrypt(plain []byte) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if len(plain) > 0xFFFF {
		return nil, fmt.Errorf("crypto: body too long: %d", len(plain))
	}
	c.sendLock.Lock()
	defer c.sendLock.Unlock()

	out := make([]byte, HeaderSize+len(plain))
	copy(out, makeHeader(len(plain), c.sendIV, c.sendVersion))
	body := out[HeaderSize:]
	copy(body, plain)
	shandaEncrypt(body)
	c.transform(body, c.sendIV)
	c.sendIV = shuffleIV(c.sendIV)
	return out, nil
}

func (c *AESCryptograph) Decrypt(frame []byte) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if len(frame) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(frame))
	}
	c.recvLock.Lock()
	defer c.recvLock.Unlock()

	header := frame[:HeaderSize]
	if !checkHeader(header, c.recvIV, c.recvVersion) {
		return nil, fmt.Errorf("%w: % X", ErrHeaderMismatch, header)
	}
	if n := DeriveLength(header); n != len(frame)-HeaderSize {
		return nil, fmt.Errorf("%w: header %d, body %d", ErrLengthMismatch, n, len(frame)-HeaderSize)
	}
	body := make([]byte, len(frame)-HeaderSize)
	copy(body, frame[HeaderSize:])
	c.transform(body, c.recvIV)
	c.recvIV = shuffleIV(c.recvIV)
	shandaDecrypt(body)
	return body, nil
}

// Close 之后iv清零，不能再使用
func (c *AESCryptograph) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.sendLock.Lock()
	c.sendIV = [4]byte{}
	c.sendLock.Unlock()
	c.recvLock.Lock()
	c.recvIV = [4]byte{}
	c.recvLock.Unlock()
	return nil
}

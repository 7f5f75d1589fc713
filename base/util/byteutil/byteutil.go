package byteutil

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// BytesToHexString 将字节数组转成大写16进制字符串，delim为分隔符
func BytesToHexString(bs []byte, delim string) string {
	if len(bs) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(bs) * (2 + len(delim)))
	enc := make([]byte, 2)
	for i, b := range bs {
		if i != 0 && delim != "" {
			sb.WriteString(delim)
		}
		hex.Encode(enc, []byte{b})
		sb.WriteString(strings.ToUpper(string(enc)))
	}
	return sb.String()
}

// HexStringToBytes 解析带分隔符的16进制字符串，非法内容返回错误
func HexStringToBytes(s string, delim string) ([]byte, error) {
	if delim != "" {
		s = strings.ReplaceAll(s, delim, "")
	}
	return hex.DecodeString(s)
}

// UUID4 uuid4转成string
func UUID4() string {
	return uuid.NewString()
}

// SimpleUUID4 uuid4，不带dash
func SimpleUUID4() string {
	return strings.ReplaceAll(UUID4(), "-", "")
}

// MergeBytes 将二维byte数组压平
func MergeBytes(bs ...[]byte) []byte {
	l := 0
	for _, b := range bs {
		l += len(b)
	}
	buffer := make([]byte, 0, l)
	for _, b := range bs {
		buffer = append(buffer, b...)
	}
	return buffer
}

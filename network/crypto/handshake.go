package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Handshake 服务端连接建立后发送的明文包
// -------------------------------------------------------------------------------
// | len(u16) | version(u16) | subversion(u16 len + str) | recvIV | sendIV | locale |
// -------------------------------------------------------------------------------
// 只有服务端会发送
func (c *AESCryptograph) Handshake() []byte {
	if c.conf.Side != ServerSide {
		return nil
	}
	bodyLen := 2 + 2 + len(c.conf.Subversion) + 4 + 4 + 1
	b := make([]byte, 2, 2+bodyLen)
	binary.LittleEndian.PutUint16(b, uint16(bodyLen))
	b = binary.LittleEndian.AppendUint16(b, c.conf.Version)
	b = binary.LittleEndian.AppendUint16(b, uint16(len(c.conf.Subversion)))
	b = append(b, c.conf.Subversion...)
	b = append(b, c.conf.RecvIV[:]...)
	b = append(b, c.conf.SendIV[:]...)
	b = append(b, c.conf.Locale)
	return b
}

// ParseHandshake 客户端解析握手包，返回的配置可以直接创建客户端的cryptograph
func ParseHandshake(b []byte) (AESConfig, error) {
	var conf AESConfig
	if len(b) < 2 {
		return conf, fmt.Errorf("%w: %d bytes", ErrInvalidHandshake, len(b))
	}
	bodyLen := int(binary.LittleEndian.Uint16(b))
	body := b[2:]
	if len(body) != bodyLen || bodyLen < 13 {
		return conf, fmt.Errorf("%w: declared %d, got %d", ErrInvalidHandshake, bodyLen, len(body))
	}
	conf.Side = ClientSide
	conf.Version = binary.LittleEndian.Uint16(body)
	subLen := int(binary.LittleEndian.Uint16(body[2:]))
	if 4+subLen+9 != bodyLen {
		return conf, fmt.Errorf("%w: subversion length %d", ErrInvalidHandshake, subLen)
	}
	conf.Subversion = string(body[4 : 4+subLen])
	rest := body[4+subLen:]
	// 服务端的recv是客户端的send
	copy(conf.SendIV[:], rest[:4])
	copy(conf.RecvIV[:], rest[4:8])
	conf.Locale = rest[8]
	return conf, nil
}

// RandomIV 新连接使用的随机iv
func RandomIV() ([4]byte, error) {
	var iv [4]byte
	if _, err := rand.Read(iv[:]); err != nil {
		return iv, fmt.Errorf("crypto: random iv: %w", err)
	}
	return iv, nil
}

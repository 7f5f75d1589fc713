// Package crypto 连接级别的加解密
// 流加密的状态在每次变换之后都会改变，收发双方必须严格按顺序调用
package crypto

import "errors"

var (
	ErrClosed           = errors.New("crypto: cryptograph closed")
	ErrShortFrame       = errors.New("crypto: frame shorter than header")
	ErrHeaderMismatch   = errors.New("crypto: header does not match iv")
	ErrLengthMismatch   = errors.New("crypto: body length does not match header")
	ErrInvalidHandshake = errors.New("crypto: invalid handshake")
)

// Cryptograph 加解密的抽象
// Encrypt/Decrypt都可能改变内部状态，同一方向上的调用必须串行
type Cryptograph interface {
	// Encrypt 返回可以直接写入socket的字节
	Encrypt(plain []byte) ([]byte, error)
	// Decrypt 输入是一个完整的帧
	Decrypt(frame []byte) ([]byte, error)
	// Close 释放资源，重复调用返回nil
	Close() error
}

// Framer 带长度头的加密方式需要实现，用于从tcp流里切出帧
type Framer interface {
	HeaderSize() int
	// DeriveLength 从混淆过的头里还原帧体长度
	DeriveLength(header []byte) int
}

// Handshaker 连接建立时需要先发送明文握手包
type Handshaker interface {
	Handshake() []byte
}

package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// ErrAuthenticationFailed 解密认证失败
// 密文被篡改或密钥错误时返回，绝不返回损坏的明文
var ErrAuthenticationFailed = errors.New("密文认证失败")

// KeySize 密钥长度（AES-256）
const KeySize = 32

// Cipher 认证加密服务（AES-256-GCM）
// 密钥进程级唯一，启动时从配置注入；加解密为纯函数，不做任何 I/O
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher 创建认证加密服务
// key: 32 字节密钥（配置中 base64 解码所得）
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("密钥长度必须为 %d 字节，实际 %d 字节", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("初始化密钥失败: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("初始化 GCM 失败: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt 加密任意字节负载
// 返回的密文自包含随机 Nonce 与认证标签，解密只需密文与密钥
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("生成随机数失败: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt 解密 Encrypt 生成的密文
// 任何一位篡改都会导致 ErrAuthenticationFailed
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrAuthenticationFailed
	}

	nonce, payload := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, payload, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

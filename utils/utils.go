package utils

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"math/big"
)

// Sha512String hashes and encodes in hex the result
func Sha512String(s string) string {
	hash := sha512.New()
	hash.Write([]byte(s))
	return hex.EncodeToString(hash.Sum(nil))
}

// Rand16BytesToBase62 is used for session tokens
func Rand16BytesToBase62() string {
	return randBytesToBase62(16)
}

// Rand8BytesToBase62 is used for view IDs and verification tokens
func Rand8BytesToBase62() string {
	return randBytesToBase62(8)
}

func randBytesToBase62(size int) string {
	buf := make([]byte, size)
	_, err := rand.Read(buf)
	if err != nil {
		panic(err)
	}
	var i big.Int
	return i.SetBytes(buf).Text(62)
}

package reservation

import (
	"crypto/rand"
	"fmt"
)

// ReferenceLength は受付番号の長さ
const ReferenceLength = 8

// 読み違えやすい I, O, 0, 1 を除いた英大文字と数字
const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// ReferenceGenerator は受付番号の生成関数
type ReferenceGenerator func() (string, error)

// NewBookingReference はランダムな受付番号を生成する
func NewBookingReference() (string, error) {
	buf := make([]byte, ReferenceLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("受付番号の生成に失敗: %w", err)
	}
	// 32文字なので剰余の偏りはない
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return string(buf), nil
}

// IsValidReference は受付番号の形式を検査する
func IsValidReference(ref string) bool {
	if len(ref) != ReferenceLength {
		return false
	}
	for i := 0; i < len(ref); i++ {
		if !inAlphabet(ref[i]) {
			return false
		}
	}
	return true
}

func inAlphabet(c byte) bool {
	for i := 0; i < len(referenceAlphabet); i++ {
		if referenceAlphabet[i] == c {
			return true
		}
	}
	return false
}

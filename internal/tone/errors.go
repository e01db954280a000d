package tone

import (
	"errors"
	"fmt"
)

// ErrEncodingMismatch is returned when the buffer's element type does not
// store the generator's configured encoding.
var ErrEncodingMismatch = errors.New("tone: buffer type does not match encoding")

// InvalidParameterError 参数非法（采样率、频率、编码或帧数）
type InvalidParameterError struct {
	Name   string
	Value  any
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("tone: invalid %s %v: %s", e.Name, e.Value, e.Reason)
}

// BufferTooSmallError 目标缓冲区容量不足
type BufferTooSmallError struct {
	Frames int
	Need   int
	Have   int
}

func (e *BufferTooSmallError) Error() string {
	return fmt.Sprintf("tone: buffer too small for %d frames: need %d samples, have %d", e.Frames, e.Need, e.Have)
}

package protocol

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Флаги заголовка кадра
const (
	flagZstd byte = 1 << iota
)

// DefaultCompressThreshold - кадры меньше этого размера не сжимаются
const DefaultCompressThreshold = 512

// ErrEmptyFrame - пустой кадр без заголовка
var ErrEmptyFrame = errors.New("protocol: пустой кадр")

// Serializer кодирует снимки и записи в msgpack и при необходимости сжимает zstd.
// Кадр: 1 байт флагов, затем msgpack (или zstd(msgpack)).
// Безопасен для одновременного использования.
type Serializer struct {
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
	threshold    int
}

// NewSerializer создаёт сериализатор; threshold <= 0 означает значение по умолчанию
func NewSerializer(threshold int) (*Serializer, error) {
	if threshold <= 0 {
		threshold = DefaultCompressThreshold
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Serializer{compressor: enc, decompressor: dec, threshold: threshold}, nil
}

// Marshal кодирует v в кадр; при compress и достаточном размере тело сжимается
func (s *Serializer) Marshal(v any, compress bool) ([]byte, error) {
	body, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации msgpack: %w", err)
	}
	if !compress || len(body) < s.threshold {
		frame := make([]byte, 0, len(body)+1)
		frame = append(frame, 0)
		return append(frame, body...), nil
	}
	frame := make([]byte, 1, len(body)/2+1)
	frame[0] = flagZstd
	return s.compressor.EncodeAll(body, frame), nil
}

// Unmarshal раскрывает кадр в v
func (s *Serializer) Unmarshal(frame []byte, v any) error {
	if len(frame) == 0 {
		return ErrEmptyFrame
	}
	body := frame[1:]
	if frame[0]&flagZstd != 0 {
		var err error
		body, err = s.decompressor.DecodeAll(body, nil)
		if err != nil {
			return fmt.Errorf("ошибка распаковки zstd: %w", err)
		}
	}
	if err := msgpack.Unmarshal(body, v); err != nil {
		return fmt.Errorf("ошибка десериализации msgpack: %w", err)
	}
	return nil
}

// Compressed - кадр сжат zstd
func Compressed(frame []byte) bool {
	return len(frame) > 0 && frame[0]&flagZstd != 0
}

// Close освобождает ресурсы кодеков
func (s *Serializer) Close() {
	s.compressor.Close()
	s.decompressor.Close()
}

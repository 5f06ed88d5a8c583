package codecs

import (
	"bytes"
	"encoding/json"
	"sync"
)

var bufferPool = sync.Pool{New: allocBuffer}

func allocBuffer() interface{} {
	return &bytes.Buffer{}
}

func getBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

func releaseBuffer(v *bytes.Buffer) {
	v.Reset()
	v.Grow(0)
	bufferPool.Put(v)
}

// Serializer - generic serializer interface
type Serializer interface {
	Encode(source interface{}) ([]byte, error)
	Decode(data []byte, target interface{}) error
}

// DefaultSerializer - returns default serializer
func DefaultSerializer() Serializer {
	return &JSONSerializer{}
}

// JSONSerializer - JSON based serializer
type JSONSerializer struct{}

// Encode - encodes source into bytes using JSON encoder, without the
// trailing newline
func (s *JSONSerializer) Encode(source interface{}) ([]byte, error) {
	buf := getBuffer()
	defer releaseBuffer(buf)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(source)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), bytes.TrimRight(buf.Bytes(), "\n")...), nil
}

// Decode - decodes given bytes into target struct
func (s *JSONSerializer) Decode(data []byte, target interface{}) error {
	buf := bytes.NewBuffer(data)
	dec := json.NewDecoder(buf)
	return dec.Decode(target)
}

// Type - shows serializer type
func (s *JSONSerializer) Type() string {
	return "JSON"
}

// EncodeBag - encodes a data bag into a string suitable for a ConfigMap value
func EncodeBag(s Serializer, bag map[string]string) (string, error) {
	if bag == nil {
		bag = map[string]string{}
	}
	bts, err := s.Encode(bag)
	if err != nil {
		return "", err
	}
	return string(bts), nil
}

// DecodeBag - decodes a data bag, an empty value decodes to an empty bag
func DecodeBag(s Serializer, value string) (map[string]string, error) {
	bag := make(map[string]string)
	if value == "" {
		return bag, nil
	}
	if err := s.Decode([]byte(value), &bag); err != nil {
		return nil, err
	}
	return bag, nil
}

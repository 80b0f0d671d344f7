package api

import (
	"encoding/base64"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func Base64UrlEncode(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	outLen := base64.URLEncoding.EncodedLen(len(data))
	result := make([]byte, outLen)
	base64.URLEncoding.Encode(result, data)
	for ; outLen > 0; outLen-- {
		if result[outLen-1] != '=' {
			break
		}
	}
	return string(result[:outLen])
}

func Base64UrlDecode(text string) []byte {
	if len(text) == 0 {
		return nil
	}
	switch len(text) % 4 {
	case 0:
		break
	case 1:
		return nil
	case 2:
		text += "=="
	case 3:
		text += "="
	}
	outLen := base64.URLEncoding.DecodedLen(len(text))
	result := make([]byte, outLen)
	outLen, err := base64.URLEncoding.Decode(result, []byte(text))
	if err != nil {
		return nil
	}
	return result[:outLen]
}

func GenerateUid() []byte {
	var u = uuid.New()
	return u[:]
}

var sdkLogger *zap.Logger

func GetLogger() *zap.Logger {
	if sdkLogger == nil {
		var err error
		if sdkLogger, err = zap.NewDevelopment(); err != nil {
			sdkLogger = zap.NewNop()
		}
	}
	return sdkLogger
}
func SetNoLogger() {
	SetLogger(zap.NewNop())
}
func SetLogger(logger *zap.Logger) {
	sdkLogger = logger
}

type Set[K comparable] map[K]struct{}

func NewSet[K comparable]() Set[K] {
	return make(Set[K])
}
func MakeSet[K comparable](keys []K) Set[K] {
	var ns = NewSet[K]()
	for _, k := range keys {
		ns.Add(k)
	}
	return ns
}
func (s Set[K]) Has(key K) (ok bool) {
	_, ok = s[key]
	return
}
func (s Set[K]) Add(key K) {
	s[key] = struct{}{}
}
func (s Set[K]) Delete(key K) {
	delete(s, key)
}
func (s Set[K]) ToArray() (result []K) {
	for k := range s {
		result = append(result, k)
	}
	return
}
func (s Set[K]) Union(other []K) {
	for _, k := range other {
		s.Add(k)
	}
}
func (s Set[K]) Difference(other []K) {
	for _, k := range other {
		if s.Has(k) {
			delete(s, k)
		}
	}
}

func SliceWhere[T any](s []T, wf func(T) bool) (result []T) {
	for _, e := range s {
		if wf(e) {
			result = append(result, e)
		}
	}
	return
}

func SliceSelect[TI any, TO any](si []TI, sf func(TI) TO) (result []TO) {
	for _, e := range si {
		result = append(result, sf(e))
	}
	return
}

func SliceForeach[T any](s []T, ef func(T)) {
	for _, e := range s {
		ef(e)
	}
}

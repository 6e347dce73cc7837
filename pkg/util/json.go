package util

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// DecodeStruct unmarshals JSON into T and validates the result. Anything that
// is not already a byte slice is marshaled first.
func DecodeStruct[T any](obj any) (*T, error) {
	data, ok := obj.([]byte)
	if !ok {
		var err error
		if data, err = json.Marshal(obj); err != nil {
			return nil, err
		}
	}
	result := new(T)
	if err := json.Unmarshal(data, result); err != nil {
		return nil, fmt.Errorf("decode %T: %w", *result, err)
	}
	if err := validate.Struct(result); err != nil {
		return nil, err
	}
	return result, nil
}

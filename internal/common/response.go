package common

import (
	"encoding/json"
	"net/http"
)

type ResponseType string

const (
	ResponseTypeObject ResponseType = "object"
	ResponseTypeArray  ResponseType = "array"
)

// Response is the default response object
type Response struct {
	ResponseType ResponseType `json:"response_type"`
	Object       any          `json:"object,omitempty"`
	Array        any          `json:"array,omitempty"`
}

func Body(w http.ResponseWriter, body any) error {
	b, err := json.Marshal(&Response{
		ResponseType: ResponseTypeObject,
		Object:       body,
	})
	if err != nil {
		return err
	}

	w.Header().Add("Content-Type", "application/json")
	w.Write(b)

	return nil
}

func BodyMultiple(w http.ResponseWriter, body any) error {
	b, err := json.Marshal(&Response{
		ResponseType: ResponseTypeArray,
		Array:        body,
	})
	if err != nil {
		return err
	}

	w.Header().Add("Content-Type", "application/json")
	w.Write(b)

	return nil
}

package json

import (
	"encoding/json"
	"io"
	"net/http"
)

func DecodeJson[T any](r io.Reader) (T, error) {
	var value T
	err := json.NewDecoder(r).Decode(&value)
	return value, err
}

func EncodeJson(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}

// EncodeError writes the client-facing error body: {"message": ...}.
func EncodeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// EncodeErrorWithCause attaches the underlying error string for unexpected
// failures: {"message": ..., "error": ...}.
func EncodeErrorWithCause(w http.ResponseWriter, code int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message, "error": err.Error()})
}

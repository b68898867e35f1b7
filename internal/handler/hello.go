package handler

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/sakif/profiles-api/internal/apperror"
)

// maxHelloName bounds the name accepted by the hello demo.
const maxHelloName = 10

// HelloHandler is a small demo of how a hand-written view maps HTTP methods
// to functions. It touches no storage.
type HelloHandler struct{}

func NewHelloHandler() *HelloHandler {
	return &HelloHandler{}
}

// HTTP: GET /hello-view
func (h *HelloHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Hello there!",
		"an_apiview": []string{
			"Uses HTTP methods (GET, POST, PUT, PATCH, DELETE) as functions",
			"Gives full control over the application logic",
			"Is mapped to URLs by hand",
		},
	})
}

// HandlePost greets the posted name.
//
// HTTP: POST /hello-view
// BODY: {"name": "Jane"} (at most 10 characters)
func (h *HelloHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		WriteError(w, r, err)
		return
	}

	name := strings.TrimSpace(body.Name)
	switch {
	case name == "":
		WriteError(w, r, apperror.ValidationFailed("name", "This field is required."))
		return
	case utf8.RuneCountInString(name) > maxHelloName:
		WriteError(w, r, apperror.ValidationFailed("name",
			fmt.Sprintf("Ensure this field has no more than %d characters.", maxHelloName)))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Hello %s!", name)})
}

// HandleEcho answers PUT, PATCH and DELETE by naming the method.
func (h *HelloHandler) HandleEcho(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"method": r.Method})
}

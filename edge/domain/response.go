package domain

import "net/http"

// Response é a resposta HTTP de saída.
//
// Produzida pela unidade de computação ou, em caso de falha, sintetizada pelo
// shell (InternalError). Depois de entregue ao Listener, pertence ao runtime.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// InternalError é o fallback fixo: 500, sem headers, corpo vazio.
func InternalError() *Response {
	return &Response{Status: http.StatusInternalServerError}
}

// NewResponse monta uma resposta com headers vazios.
func NewResponse(status int, body []byte) *Response {
	return &Response{Status: status, Header: make(http.Header), Body: body}
}

// Clone devolve uma cópia profunda (headers e corpo).
// O cache guarda cópias para que a unidade possa devolver o original.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := &Response{Status: r.Status}
	if r.Header != nil {
		out.Header = r.Header.Clone()
	}
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return out
}

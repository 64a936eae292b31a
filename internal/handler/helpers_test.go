//go:build unit || integration

package handler

import (
	"context"
	"fyrewiki/internal/mailer"
	"net/url"
	"strconv"
	"sync"
)

// recordingSender keeps the messages it is asked to send.
type recordingSender struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (s *recordingSender) Send(ctx context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

// codeForm spreads a code over the num1..numN fields of the verify form.
func codeForm(code string) url.Values {
	form := url.Values{}
	for i, c := range code {
		form.Set("num"+strconv.Itoa(i+1), string(c))
	}
	return form
}

package ai

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// Таблицы классификации: новый провайдер = новая строка здесь, а не новые if-ы.
var codeKinds = map[string]FailureKind{
	"invalid_api_key":     KindBadCredential,
	"insufficient_quota":  KindQuotaExceeded,
	"rate_limit_exceeded": KindRateLimited,
}

var statusKinds = map[int]FailureKind{
	http.StatusUnauthorized:    KindBadCredential,
	http.StatusTooManyRequests: KindRateLimited,
}

// ProviderError is the operator-facing view of a provider failure.
// It is logged and never shown to the end user.
type ProviderError struct {
	Code    string
	Type    string
	Status  int
	Message string
}

// Classify maps a provider/transport error to exactly one failure kind.
func Classify(err error) (FailureKind, ProviderError) {
	if err == nil {
		return "", ProviderError{}
	}

	pe := ProviderError{Message: err.Error()}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		pe.Type = apiErr.Type
		pe.Status = apiErr.HTTPStatusCode
		if code, ok := apiErr.Code.(string); ok {
			pe.Code = code
		}
		if kind, ok := codeKinds[pe.Code]; ok {
			return kind, pe
		}
		if kind, ok := statusKinds[pe.Status]; ok {
			return kind, pe
		}
		return KindUnknown, pe
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		pe.Status = reqErr.HTTPStatusCode
		if kind, ok := statusKinds[pe.Status]; ok {
			return kind, pe
		}
		return KindUnknown, pe
	}

	if errors.Is(err, context.DeadlineExceeded) {
		pe.Type = "timeout"
	}
	return KindUnknown, pe
}

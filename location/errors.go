// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// GeocodingError representa erros específicos de geocodificação reversa.
type GeocodingError struct {
	Type    ErrorType
	Message string
	Err     error
}

// ErrorType define os tipos de erro de geocodificação.
type ErrorType int

const (
	// ErrorTypeUnknown erro desconhecido.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateLimit limite de requisições atingido.
	ErrorTypeRateLimit
	// ErrorTypeQuotaExceeded cota excedida.
	ErrorTypeQuotaExceeded
	// ErrorTypeTimeout tempo esgotado.
	ErrorTypeTimeout
	// ErrorTypeNotFound endereço não encontrado.
	ErrorTypeNotFound
	// ErrorTypeInvalidRequest requisição inválida.
	ErrorTypeInvalidRequest
	// ErrorTypeNetworkError erro de rede.
	ErrorTypeNetworkError
	// ErrorTypeParseError resposta malformada.
	ErrorTypeParseError
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeUnknown:        "unknown",
	ErrorTypeRateLimit:      "rate_limit",
	ErrorTypeQuotaExceeded:  "quota_exceeded",
	ErrorTypeTimeout:        "timeout",
	ErrorTypeNotFound:       "not_found",
	ErrorTypeInvalidRequest: "invalid_request",
	ErrorTypeNetworkError:   "network",
	ErrorTypeParseError:     "parse",
}

func (t ErrorType) String() string {
	if s, ok := errorTypeNames[t]; ok {
		return s
	}

	return fmt.Sprintf("ErrorType(%d)", int(t))
}

func (e *GeocodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *GeocodingError) Unwrap() error {
	return e.Err
}

// GeocodingErrorType devolve o tipo do erro, ou ErrorTypeUnknown quando err
// não é um *GeocodingError.
func GeocodingErrorType(err error) ErrorType {
	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Type
	}

	return ErrorTypeUnknown
}

// IsRateLimitError verifica se o erro é por limite de requisições.
func IsRateLimitError(err error) bool {
	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Type == ErrorTypeRateLimit
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429")
}

// IsQuotaExceededError verifica se o erro é por cota excedida.
func IsQuotaExceededError(err error) bool {
	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Type == ErrorTypeQuotaExceeded
	}

	// mensagens típicas do Google Maps
	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "over_query_limit") ||
		strings.Contains(errStr, "quota exceeded")
}

// IsTimeoutError verifica se o erro é por tempo esgotado.
func IsTimeoutError(err error) bool {
	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Type == ErrorTypeTimeout
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// ClassifyHTTPError classifica um status HTTP num erro de geocodificação.
func ClassifyHTTPError(statusCode int, provider string) *GeocodingError {
	switch statusCode {
	case http.StatusTooManyRequests: // 429
		return &GeocodingError{
			Type:    ErrorTypeRateLimit,
			Message: provider + ": limite de requisições atingido",
		}
	case http.StatusForbidden: // 403
		return &GeocodingError{
			Type:    ErrorTypeQuotaExceeded,
			Message: provider + ": cota excedida ou acesso negado",
		}
	case http.StatusBadRequest: // 400
		return &GeocodingError{
			Type:    ErrorTypeInvalidRequest,
			Message: provider + ": requisição inválida",
		}
	case http.StatusNotFound: // 404
		return &GeocodingError{
			Type:    ErrorTypeNotFound,
			Message: provider + ": endereço não encontrado",
		}
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return &GeocodingError{
			Type:    ErrorTypeNetworkError,
			Message: fmt.Sprintf("%s: serviço indisponível (código %d)", provider, statusCode),
		}
	default:
		return &GeocodingError{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("%s: erro HTTP %d", provider, statusCode),
		}
	}
}

// classifyTransportError transforma um erro do http.Client num *GeocodingError.
func classifyTransportError(provider string, err error) *GeocodingError {
	var netErr net.Error

	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &GeocodingError{Type: ErrorTypeTimeout, Message: provider + ": tempo esgotado", Err: err}
	}

	return &GeocodingError{Type: ErrorTypeNetworkError, Message: provider + ": falha de rede", Err: err}
}

// ErrPermissionDenied indica que o usuário negou acesso à localização.
var ErrPermissionDenied = errors.New("permissão de localização negada")

// ErrSensorTimeout indica que o GPS não entregou uma posição a tempo.
var ErrSensorTimeout = errors.New("tempo esgotado aguardando o GPS")

// PermissionError é devolvido quando a permissão de localização não foi concedida.
type PermissionError struct {
	Status PermissionStatus
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%v (%s)", ErrPermissionDenied, e.Status)
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// FixError é devolvido quando não foi possível obter uma posição.
type FixError struct {
	Err error
}

func (e *FixError) Error() string {
	return fmt.Sprintf("não foi possível obter a localização: %v", e.Err)
}

func (e *FixError) Unwrap() error {
	return e.Err
}

package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")

	// ErrDocumentUnusable: ninguna estrategia de extracción produjo ítems.
	// Es el único fallo a nivel de documento; todo lo demás degrada parcial.
	ErrDocumentUnusable = errors.New("documento sin ítems extraíbles")

	// ErrJobNotRetryable: solo los jobs en estado failed se pueden reencolar.
	ErrJobNotRetryable = errors.New("el job no está en estado failed")
)

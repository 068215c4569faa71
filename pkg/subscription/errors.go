package subscription

import "github.com/cockroachdb/errors"

// Sentinel errors. Callers match them with errors.Is; stores and the
// service wrap them with context.
var (
	// ErrInvalidDuration is returned for durations that are not "<n>d" with n > 0
	ErrInvalidDuration = errors.New("duración inválida")
	// ErrInvalidBatchSize is returned for batches outside 1..MaxBatchSize
	ErrInvalidBatchSize = errors.New("cantidad de códigos inválida")
	// ErrCodeNotFound covers both unknown and already redeemed codes
	ErrCodeNotFound = errors.New("código no encontrado o ya canjeado")
	// ErrCodeExists is returned by the code store on a token collision
	ErrCodeExists = errors.New("el código ya existe")
	// ErrCodeRedeemed is returned when revoking a code that was already used
	ErrCodeRedeemed = errors.New("el código ya fue canjeado")
	// ErrActiveSubscription rejects a redemption while the guild still has time left
	ErrActiveSubscription = errors.New("el servidor ya tiene una suscripción activa")
	// ErrGuildRequired rejects operations that need a guild context
	ErrGuildRequired = errors.New("se requiere un servidor")
)

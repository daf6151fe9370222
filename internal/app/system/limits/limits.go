// internal/app/system/limits/limits.go
package limits

// Size limits for client input.
const (
	// MaxJSONBody caps admin API request bodies.
	MaxJSONBody = 1 << 20 // 1 MB

	// MaxLiveFrame caps frames read from live clients, which only send
	// control frames.
	MaxLiveFrame = 512
)

package resilience

import (
	"time"

	"github.com/sells-group/formfill-cli/internal/config"
)

// answerGeneratorBreaker names the breaker guarding LLM calls in logs.
const answerGeneratorBreaker = "answer_generator"

// ForAI derives the retry and breaker policies for answer generation from
// the ai config section. Unset values keep the defaults.
func ForAI(ai config.AIConfig) (RetryConfig, CircuitBreakerConfig) {
	retry := DefaultRetryConfig()
	if ai.MaxRetries > 0 {
		retry.MaxAttempts = ai.MaxRetries
	}
	if ai.BackoffMs > 0 {
		retry.InitialBackoff = time.Duration(ai.BackoffMs) * time.Millisecond
	}
	retry.OnRetry = RetryLogger(answerGeneratorBreaker, "generate")

	breaker := DefaultCircuitBreakerConfig()
	breaker.Name = answerGeneratorBreaker
	if ai.CircuitFailureThreshold > 0 {
		breaker.FailureThreshold = ai.CircuitFailureThreshold
	}
	if ai.CircuitResetSecs > 0 {
		breaker.ResetTimeout = time.Duration(ai.CircuitResetSecs) * time.Second
	}
	return retry, breaker
}

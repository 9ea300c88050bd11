package scoring

import "errors"

// ErrEvaluationUnavailable accompanies a degraded Result. The interview continues.
var ErrEvaluationUnavailable = errors.New("evaluation unavailable")

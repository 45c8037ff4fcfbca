package assert

import "fmt"

func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
}

func NotEmptyStr(str string) {
	if str == "" {
		panic("expected string to be non-empty")
	}
}

// Positive panics if the given duration or count is not greater than zero.
func Positive[T ~int | ~int64](value T) {
	if value <= 0 {
		panic(fmt.Sprintf("expected positive value, got %d", value))
	}
}

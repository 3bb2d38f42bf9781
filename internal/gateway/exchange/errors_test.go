package exchange

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPrecisionError(t *testing.T) {
	wrapped := fmt.Errorf("place order BTCUSDT: %w", &APIError{Code: -1111, Message: "Precision is over the maximum"})
	assert.True(t, IsPrecisionError(wrapped))
	assert.False(t, IsPrecisionError(&APIError{Code: -2019, Message: "Margin is insufficient."}))
	assert.False(t, IsPrecisionError(errors.New("-1111")))
	assert.False(t, IsPrecisionError(nil))
}

func TestIsNoChangeNeeded(t *testing.T) {
	assert.True(t, IsNoChangeNeeded(&APIError{Code: -4046, Message: "whatever"}))
	assert.True(t, IsNoChangeNeeded(errors.New("No need to change margin type.")))
	assert.True(t, IsNoChangeNeeded(fmt.Errorf("set margin: %w", errors.New("Margin type is same"))))
	assert.False(t, IsNoChangeNeeded(&APIError{Code: -4048, Message: "Margin type cannot be changed if there exists position."}))
	assert.False(t, IsNoChangeNeeded(nil))
}

func TestPositionSide(t *testing.T) {
	assert.Equal(t, "long", Position{Amount: 0.2}.Side())
	assert.Equal(t, "short", Position{Amount: -0.2}.Side())
	assert.True(t, Position{}.IsFlat())
	assert.Equal(t, 0.2, Position{Amount: -0.2}.Size())
	assert.Equal(t, SideSell, SideBuy.Opposite())
}

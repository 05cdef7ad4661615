package ask

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"tsumugi/internal/ai"
)

func TestFailureMessage(t *testing.T) {
	assert.Equal(t, "ごめんなさい、その質問にはお答えできません。(理由: SAFETY)",
		failureMessage(fmt.Errorf("gemini: %w", &ai.BlockedError{Reason: "SAFETY"})))
	assert.Equal(t, "つむぎから応答がありませんでした。", failureMessage(ai.ErrEmptyResponse))
	assert.Equal(t, "申し訳ありません、処理中にエラーが発生しました。", failureMessage(errors.New("timeout")))
}

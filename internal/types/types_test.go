package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasStickerDerivedFromStickerType(t *testing.T) {
	plain := PriceObservation{Price: 12.5, Condition: ConditionMint}
	assert.False(t, plain.HasSticker())

	st := StickerSDCC
	stickered := PriceObservation{Price: 45, Condition: ConditionMint, StickerType: &st}
	assert.True(t, stickered.HasSticker())
}

func TestMetadataSerialization(t *testing.T) {
	st := StickerNYCC
	sc := StickerGood
	obs := PriceObservation{
		Price:            30,
		Condition:        ConditionMint,
		StickerType:      &st,
		StickerCondition: &sc,
	}

	raw, err := obs.MarshalMetadata()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "NYCC", decoded["sticker_type"])
	assert.Equal(t, "good", decoded["sticker_condition"])
	assert.Equal(t, true, decoded["has_sticker"])
}

func TestMetadataNullsForPlainObservation(t *testing.T) {
	obs := PriceObservation{Price: 9.99, Condition: ConditionMint}

	raw, err := obs.MarshalMetadata()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Nil(t, decoded["sticker_type"])
	assert.Nil(t, decoded["sticker_condition"])
	assert.Equal(t, false, decoded["has_sticker"])
}

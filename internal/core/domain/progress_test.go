package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStages_Order(t *testing.T) {
	stages := Stages()
	assert.Len(t, stages, 7)
	assert.Equal(t, StageEmbed, stages[0])
	assert.Equal(t, StageComplete, stages[len(stages)-1])
}

func TestStage_Label(t *testing.T) {
	for _, s := range Stages() {
		assert.NotEqual(t, unknownDescription, s.Label(), s)
	}
	assert.Equal(t, unknownDescription, Stage("bogus").Label())
}

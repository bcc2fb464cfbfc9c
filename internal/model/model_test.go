package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCompositeID(t *testing.T) {
	doc := uuid.New()
	c := Chunk{DocumentID: doc, ChunkIndex: 3}
	require.Equal(t, doc.String()+"_3", c.CompositeID())
	require.Equal(t, c.CompositeID(), CompositeID(doc, 3))
}

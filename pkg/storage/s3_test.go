package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeName(t *testing.T) {
	assert.Equal(t, "Recital-Final-Cut.mp4", SafeName("Recital Final Cut.mp4"))
	assert.Equal(t, "passwd", SafeName("../../etc/passwd"))
	assert.Equal(t, "clip.mov", SafeName(`C:\Users\crew\clip.mov`))
	assert.Equal(t, "file", SafeName("..."))
}

func TestFileKeyAndOwnership(t *testing.T) {
	key := FileKey("t1", "f1", "My Shot List.pdf")
	assert.Equal(t, "files/t1/f1/My-Shot-List.pdf", key)
	assert.True(t, OwnedBy(key, "t1"))
	assert.False(t, OwnedBy(key, "t2"))
	assert.False(t, OwnedBy("files/t1/../t2/f/x", "t1"))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "video/x-custom", ContentTypeFor("a.mp4", "video/x-custom"))
	assert.Equal(t, "application/pdf", ContentTypeFor("contract.PDF", ""))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("raw.r3d", "application/octet-stream"))
}

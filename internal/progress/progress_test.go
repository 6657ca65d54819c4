package progress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBarLifecycle(t *testing.T) {
	var out bytes.Buffer
	b := NewBar(&out)

	b.Update(3)
	b.End()

	b.Start("Creating domain", 0)
	b.Update(5)
	b.End()
	assert.Nil(t, b.bar)

	b.Start("Provisioning volume", 10)
	b.Start("Second step", 2)
	b.End()
	assert.Nil(t, b.p)
}

func TestNop(t *testing.T) {
	var m Meter = Nop{}
	m.Start("x", 1)
	m.Update(1)
	m.End()
}

package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/registrar/core"
)

func newTestLogger() (*RollbarLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Env: "TEST", Build: "test"})
	logger.Enable(false)
	return logger, &buf
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger, _ := newTestLogger()
	err := errors.New("boom")

	args := logger.prepare("register.save_payment failed", []interface{}{err, core.Fields{"key": "42", studentField: "CARD-1"}})

	if assert.Len(t, args, 3) {
		assert.Equal(t, "register.save_payment failed", args[0])
		assert.Equal(t, err, args[1])
		assert.Equal(t, map[string]interface{}{"key": "42", studentField: "CARD-1"}, args[2])
	}
}

func TestRollbarLogger_print(t *testing.T) {
	logger, buf := newTestLogger()

	logger.Warn("looking up enrollment fee", core.Fields{"key": "42"})
	logger.Info("annual register 42 created")

	assert.Equal(t, "[WARN] looking up enrollment fee\nmap[key:42]\n[INFO] annual register 42 created\n", buf.String())
}

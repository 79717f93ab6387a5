package errors_test

import (
	stderrors "errors"
	"io"
	"testing"

	"codeberg.org/mutker/sysmon/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	errFactory := errors.New()

	assert.Equal(t, "Invalid sampling interval", errFactory.New(errors.ErrInvalidInterval).Error())
	assert.Equal(t, "custom", errFactory.WithMessage(errors.ErrPIDFile, "custom").Error())
	assert.Equal(t, "Failed to read config file: EOF", errFactory.Wrap(errors.ErrReadConfig, io.EOF).Error())
	assert.Equal(t, "Invalid log level: bad", errFactory.WithData(errors.ErrInvalidLogLevel, "bad").Error())
	assert.Equal(t, "unknown_code", errFactory.New(errors.ErrorCode("unknown_code")).Error())
}

func TestWrapUnwrap(t *testing.T) {
	err := errors.New().Wrap(errors.ErrRecordFailed, io.ErrUnexpectedEOF)

	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, errors.ErrRecordFailed, err.Code())
}

func TestHasCode(t *testing.T) {
	errFactory := errors.New()
	inner := errFactory.Wrap(errors.ErrResourceNotFound, io.EOF)
	outer := errFactory.Wrap(errors.ErrInitCSVLog, inner)

	assert.True(t, errors.HasCode(outer, errors.ErrInitCSVLog))
	assert.True(t, errors.HasCode(outer, errors.ErrResourceNotFound))
	assert.False(t, errors.HasCode(outer, errors.ErrTimeout))
	assert.False(t, errors.HasCode(stderrors.New("plain"), errors.ErrPIDFile))
	assert.False(t, errors.HasCode(nil, errors.ErrPIDFile))
}

func TestWithDataKeepsCode(t *testing.T) {
	err := errors.New().New(errors.ErrInvalidConfig).WithData("interval")

	assert.Equal(t, errors.ErrInvalidConfig, err.Code())
	assert.Equal(t, "interval", err.GetData())
}

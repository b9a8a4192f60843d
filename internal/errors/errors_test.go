package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
)

func TestAppError_Error(t *testing.T) {
	err := NewAppError(ErrorTypeSQL, "statement failed", errors.New("boom"))
	if err.Error() != "sql: statement failed (caused by: boom)" {
		t.Errorf("Unexpected error string: %s", err.Error())
	}

	bare := NewAppError(ErrorTypeConnection, "no route", nil)
	if bare.Error() != "connection: no route" {
		t.Errorf("Unexpected error string: %s", bare.Error())
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewAppError(ErrorTypeSQL, "wrapper", cause)
	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to reach the cause")
	}
}

func TestClassify_MySQLErrors(t *testing.T) {
	tests := []struct {
		number      uint16
		wantType    ErrorType
		recoverable bool
	}{
		{1045, ErrorTypePermission, false},
		{1049, ErrorTypeValidation, false},
		{1050, ErrorTypeSchema, false},
		{1146, ErrorTypeSchema, false},
		{1064, ErrorTypeSQL, false},
		{2003, ErrorTypeConnection, true},
		{2006, ErrorTypeConnection, true},
		{9999, ErrorTypeSQL, false},
	}

	for _, tt := range tests {
		err := &mysql.MySQLError{Number: tt.number, Message: "test"}
		classified := Classify(err)
		if classified.Type != tt.wantType {
			t.Errorf("Error %d: expected type %s, got %s", tt.number, tt.wantType, classified.Type)
		}
		if classified.IsRecoverable() != tt.recoverable {
			t.Errorf("Error %d: expected recoverable=%v", tt.number, tt.recoverable)
		}
		if classified.Context["mysql_error_code"] != tt.number {
			t.Errorf("Error %d: expected error code in context", tt.number)
		}
	}
}

func TestClassify_DriverErrors(t *testing.T) {
	if Classify(sql.ErrNoRows).Type != ErrorTypeValidation {
		t.Error("Expected ErrNoRows to classify as validation")
	}
	if !Classify(sql.ErrConnDone).IsRecoverable() {
		t.Error("Expected ErrConnDone to be recoverable")
	}
}

func TestClassify_ContextErrors(t *testing.T) {
	if Classify(context.DeadlineExceeded).Type != ErrorTypeTimeout {
		t.Error("Expected deadline exceeded to classify as timeout")
	}
	if Classify(context.Canceled).Type != ErrorTypeInterruption {
		t.Error("Expected cancellation to classify as interruption")
	}
}

func TestClassify_AlreadyClassified(t *testing.T) {
	orig := NewAppError(ErrorTypeSchema, "schema read failed", nil)
	wrapped := fmt.Errorf("outer: %w", orig)
	if Classify(wrapped) != orig {
		t.Error("Expected existing AppError to be returned unchanged")
	}
}

func TestRetry_NonRecoverableFailsFast(t *testing.T) {
	handler := NewRetryHandler(RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1})

	calls := 0
	err := handler.Retry(context.Background(), func() error {
		calls++
		return NewAppError(ErrorTypeValidation, "bad input", nil)
	})

	if err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 {
		t.Errorf("Expected no retries for non-recoverable error, got %d calls", calls)
	}
}

func TestRetry_RecoverableRetries(t *testing.T) {
	handler := NewRetryHandler(RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1})

	calls := 0
	err := handler.Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return NewRecoverableError(ErrorTypeConnection, "transient", nil)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestRetry_CanceledContext(t *testing.T) {
	handler := NewDefaultRetryHandler()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := handler.Retry(ctx, func() error { return nil })
	if GetErrorType(err) != ErrorTypeInterruption {
		t.Errorf("Expected interruption, got %v", err)
	}
}

func TestCalculateDelay_Backoff(t *testing.T) {
	handler := NewRetryHandler(RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 2})

	if handler.calculateDelay(1) != time.Second {
		t.Errorf("Expected base delay on first attempt")
	}
	if handler.calculateDelay(2) != 2*time.Second {
		t.Errorf("Expected doubled delay on second attempt")
	}
	if handler.calculateDelay(4) != 3*time.Second {
		t.Errorf("Expected delay capped at max")
	}
}

func TestWrapError_PreservesTypeAndRecoverability(t *testing.T) {
	orig := NewRecoverableError(ErrorTypeConnection, "lost", nil)
	wrapped := WrapError(orig, "while copying table")

	if GetErrorType(wrapped) != ErrorTypeConnection {
		t.Errorf("Expected connection type, got %s", GetErrorType(wrapped))
	}
	if !IsRecoverableError(wrapped) {
		t.Error("Expected wrapped error to stay recoverable")
	}
	if WrapError(nil, "noop") != nil {
		t.Error("Expected nil for nil error")
	}
}

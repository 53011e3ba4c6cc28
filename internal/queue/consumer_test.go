package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFormatAuditLine_ParentLinked(t *testing.T) {
	body, err := json.Marshal(ParentLinkedEvent{
		ChildID:   "c1",
		ChildName: "김민준",
		AccountID: "p1",
		ClassID:   "faith1",
		Trigger:   "register",
		LinkedAt:  "2025-03-02T10:00:00Z",
	})
	require.NoError(t, err)

	line, err := FormatAuditLine(ParentLinkedQueue, body)
	require.NoError(t, err)
	assert.Equal(t, "[2025-03-02T10:00:00Z] Parent linked | child_id=c1 | child=\"김민준\" | account_id=p1 | class_id=faith1 | trigger=register\n", line)
}

func TestFormatAuditLine_AccountRegistered(t *testing.T) {
	body := []byte(`{"account_id":"p1","username":"mom","role":"parent","registered_at":"2025-03-02T10:00:00Z"}`)

	line, err := FormatAuditLine(AccountRegisteredQueue, body)
	require.NoError(t, err)
	assert.Contains(t, line, "username=\"mom\"")
	assert.Contains(t, line, "linked_child=-")
}

func TestFormatAuditLine_Errors(t *testing.T) {
	_, err := FormatAuditLine(ParentLinkedQueue, []byte("{"))
	assert.Error(t, err)

	_, err = FormatAuditLine("other", []byte("{}"))
	assert.ErrorContains(t, err, "unknown queue")
}

func TestAuditConsumer_AppendLine(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	c := &AuditConsumer{Dir: dir, Log: zap.NewNop()}

	require.NoError(t, c.appendLine("one\n"))
	require.NoError(t, c.appendLine("two\n"))

	b, err := os.ReadFile(filepath.Join(dir, "linking.log"))
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(b))
}

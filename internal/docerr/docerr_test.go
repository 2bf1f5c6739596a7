package docerr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOf_ThroughWrapping(t *testing.T) {
	base := EntryMissing("extract", "word/document.xml", errors.New("not found"))
	wrapped := fmt.Errorf("convert: %w", base)

	if got := KindOf(wrapped); got != KindEntryMissing {
		t.Errorf("expected kind %v, got %v", KindEntryMissing, got)
	}
	if !Is(wrapped, KindEntryMissing) {
		t.Error("expected Is to match wrapped entry-missing error")
	}
	if Is(wrapped, KindMalformed) {
		t.Error("expected Is not to match a different kind")
	}
}

func TestKindOf_PlainError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindUnknown {
		t.Errorf("expected unknown kind, got %v", got)
	}
	if Is(nil, KindUnknown) {
		t.Error("expected nil error never to match")
	}
}

func TestError_Message(t *testing.T) {
	err := OutputWrite("create", "/tmp/out.docx", errors.New("permission denied"))
	msg := err.Error()
	for _, want := range []string{"create", "output write failure", "/tmp/out.docx", "permission denied"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected message to contain %q, got %q", want, msg)
		}
	}
}

func TestWrapf_KeepsKind(t *testing.T) {
	err := Wrapf(Malformed("walk", "no w:body element"), "convert %s", "a.docx")
	if !Is(err, KindMalformed) {
		t.Errorf("expected malformed kind, got %v", KindOf(err))
	}
	if !strings.HasPrefix(err.Error(), "convert a.docx: ") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

package grandpa

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestImportJustificationVerificationFailure(t *testing.T) {
	sas := NewSharedAuthoritySet(NewAuthoritySetState(0, sampleAuthorities(2)))
	verifier := &fakeVerifier{err: errors.New("bad signature")}
	finalizer := &fakeFinalizer{}
	sender, _ := NewVoterCommandChannel(4)
	h := newJustificationHandler(sas, verifier, finalizer, sender)

	err := h.importJustification(context.Background(), hashFromByte(1), 10, []byte("just"), false, false)
	require.Error(t, err)
	require.Empty(t, finalizer.calls)
}

func TestImportJustificationFinalizeFailure(t *testing.T) {
	sas := NewSharedAuthoritySet(NewAuthoritySetState(0, sampleAuthorities(2)))
	verifier := &fakeVerifier{}
	finalizer := &fakeFinalizer{err: errors.New("db write failed")}
	sender, _ := NewVoterCommandChannel(4)
	h := newJustificationHandler(sas, verifier, finalizer, sender)

	err := h.importJustification(context.Background(), hashFromByte(1), 10, []byte("just"), false, false)
	require.Error(t, err)
}

func TestImportJustificationSendsVoterCommand(t *testing.T) {
	sas := NewSharedAuthoritySet(NewAuthoritySetState(0, sampleAuthorities(2)))
	verifier := &fakeVerifier{}
	cmd := ForwardedCommand("some-voter-command")
	finalizer := &fakeFinalizer{cmd: &cmd}
	sender, ch := NewVoterCommandChannel(4)
	h := newJustificationHandler(sas, verifier, finalizer, sender)

	err := h.importJustification(context.Background(), hashFromByte(1), 10, []byte("just"), true, false)
	require.NoError(t, err)
	require.Len(t, finalizer.calls, 1)

	got := <-ch
	require.Equal(t, VoterCommandForwarded, got.Kind)
}

func TestImportJustificationPanicsWhenMandatoryChangeNotEnacted(t *testing.T) {
	sas := NewSharedAuthoritySet(NewAuthoritySetState(0, sampleAuthorities(2)))
	verifier := &fakeVerifier{}
	finalizer := &fakeFinalizer{} // no command produced
	sender, _ := NewVoterCommandChannel(4)
	h := newJustificationHandler(sas, verifier, finalizer, sender)

	require.Panics(t, func() {
		_ = h.importJustification(context.Background(), hashFromByte(1), 10, []byte("just"), true, false)
	})
}

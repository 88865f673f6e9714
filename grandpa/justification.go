package grandpa

import (
	"context"
	"fmt"

	"github.com/go-grandpa/finality-import/primitives"
	"go.opencensus.io/trace"
)

// justificationHandler verifies a finality proof against the current
// authority set, then finalizes and forwards whatever voter command the
// Finalizer collaborator produces.
type justificationHandler struct {
	sas       *SharedAuthoritySet
	verifier  JustificationVerifier
	finalizer Finalizer
	voter     *VoterCommandSender
}

func newJustificationHandler(sas *SharedAuthoritySet, verifier JustificationVerifier, finalizer Finalizer, voter *VoterCommandSender) *justificationHandler {
	return &justificationHandler{sas: sas, verifier: verifier, finalizer: finalizer, voter: voter}
}

// importJustification verifies and applies a finality proof for (hash,
// number). If enactsChange is true, a successful finalize that does not
// produce a voter command is a consensus-critical invariant violation (the
// change it was supposed to trigger didn't happen) and is a fail-stop bug,
// not a recoverable error.
func (h *justificationHandler) importJustification(ctx context.Context, hash primitives.Hash, number primitives.BlockNumber, justification []byte, enactsChange bool, initialSync bool) error {
	ctx, span := trace.StartSpan(ctx, "grandpa.ImportJustification")
	defer span.End()

	setID, authorities := h.sas.Current()

	if err := h.verifier.DecodeAndVerifyFinalizes(justification, hash, number, setID, authorities); err != nil {
		return invalidJustificationError(err)
	}

	cmd, err := h.finalizer.FinalizeBlock(ctx, hash, number, justification, initialSync)
	if err != nil {
		return finalizerError(err)
	}

	if cmd != nil {
		logAt(initialSync, "Imported justification that triggers a voter command", map[string]interface{}{
			"number": number,
			"kind":   cmd.Kind.String(),
		})
		h.voter.Send(*cmd)
		return nil
	}

	if enactsChange {
		panic(fmt.Sprintf("grandpa: finalize_block returned Ok for block #%d when an authority set change was mandatory; this is a consensus-critical bug", number))
	}
	return nil
}

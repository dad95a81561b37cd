package core

import (
	"context"
	"fmt"

	"pkt.systems/askd/schema"
)

// ConfirmRequest asks the user whether a dangerous command may run.
type ConfirmRequest struct {
	CommandText string
	Trigger     schema.Trigger
	Matched     string
}

// Confirmer presents a blocking yes/no prompt.
type Confirmer interface {
	Confirm(ctx context.Context, req ConfirmRequest) (bool, error)
}

// ConfirmMode selects how dangerous commands are confirmed.
type ConfirmMode string

const (
	// ConfirmDialog asks through a platform dialog.
	ConfirmDialog ConfirmMode = "dialog"
	// ConfirmAllow approves every request.
	ConfirmAllow ConfirmMode = "allow"
	// ConfirmDeny declines every request.
	ConfirmDeny ConfirmMode = "deny"
)

// AutoApproveConfirmer always approves.
type AutoApproveConfirmer struct{}

func (AutoApproveConfirmer) Confirm(context.Context, ConfirmRequest) (bool, error) {
	return true, nil
}

// DenyAllConfirmer always declines.
type DenyAllConfirmer struct{}

func (DenyAllConfirmer) Confirm(context.Context, ConfirmRequest) (bool, error) {
	return false, nil
}

// NewConfirmer returns the confirmer for mode. dialog is used for ConfirmDialog.
func NewConfirmer(mode ConfirmMode, dialog Confirmer) (Confirmer, error) {
	switch mode {
	case ConfirmDialog, "":
		if dialog == nil {
			return nil, fmt.Errorf("confirm mode %q requires a dialog", ConfirmDialog)
		}
		return dialog, nil
	case ConfirmAllow:
		return AutoApproveConfirmer{}, nil
	case ConfirmDeny:
		return DenyAllConfirmer{}, nil
	default:
		return nil, fmt.Errorf("invalid confirm mode: %s", mode)
	}
}

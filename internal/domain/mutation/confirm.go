package mutation

import "context"

// StaticConfirmer answers both confirmation steps with fixed values. It is
// used by non-interactive callers that collected consent up front.
type StaticConfirmer struct {
	Accept        bool
	AdminPassword string
}

func (c StaticConfirmer) Confirm(context.Context, string) (bool, error) {
	return c.Accept, nil
}

func (c StaticConfirmer) Password(context.Context, string) (string, error) {
	return c.AdminPassword, nil
}

// ConfirmFunc adapts two callbacks to Confirmer.
type ConfirmFunc struct {
	OnConfirm  func(ctx context.Context, consequence string) (bool, error)
	OnPassword func(ctx context.Context, prompt string) (string, error)
}

func (c ConfirmFunc) Confirm(ctx context.Context, consequence string) (bool, error) {
	if c.OnConfirm == nil {
		return false, nil
	}
	return c.OnConfirm(ctx, consequence)
}

func (c ConfirmFunc) Password(ctx context.Context, prompt string) (string, error) {
	if c.OnPassword == nil {
		return "", nil
	}
	return c.OnPassword(ctx, prompt)
}

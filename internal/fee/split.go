package fee

import (
	"github.com/holiman/uint256"

	"spiceEngine/internal/model"
	"spiceEngine/internal/pricing"
)

// Breakdown divides a gross output amount. Net+Protocol+Partner equals the gross.
type Breakdown struct {
	Net      uint64
	Protocol uint64
	Partner  uint64
}

var feeScale = uint256.NewInt(model.FeeScale)

// Split applies the protocol and partner rates (scaled by model.FeeScale) to
// raw with floor division. raw must fit in 64 bits.
func Split(raw *uint256.Int, protocolRate, partnerRate uint64) (Breakdown, error) {
	if raw == nil || !raw.IsUint64() {
		return Breakdown{}, model.ErrOverflow
	}

	protocol, err := portion(raw, protocolRate)
	if err != nil {
		return Breakdown{}, err
	}
	partner, err := portion(raw, partnerRate)
	if err != nil {
		return Breakdown{}, err
	}

	total := protocol + partner
	if total < protocol {
		return Breakdown{}, model.ErrOverflow
	}
	gross := raw.Uint64()
	if total > gross {
		return Breakdown{}, model.ErrOverflow
	}

	return Breakdown{Net: gross - total, Protocol: protocol, Partner: partner}, nil
}

func portion(raw *uint256.Int, rate uint64) (uint64, error) {
	amount, overflow := new(uint256.Int).MulOverflow(raw, uint256.NewInt(rate))
	if overflow || !pricing.Fits128(amount) {
		return 0, model.ErrOverflow
	}
	amount.Div(amount, feeScale)
	if !amount.IsUint64() {
		return 0, model.ErrOverflow
	}
	return amount.Uint64(), nil
}

package calculator

import "github.com/shopspring/decimal"

// Transfer is a suggested payment that settles part of the group's debts.
type Transfer struct {
	From   string
	To     string
	Amount decimal.Decimal
}

// SuggestTransfers derives a who-pays-whom list from the net positions by
// greedily matching debtors against creditors. It is a presentation helper:
// the settlement contract is the per-member net positions, and the
// conservation law guarantees the matching always terminates with both
// sides at zero.
//
// Members are processed in ascending name order so the output is
// deterministic for a given ledger.
func (p *ProjectSharingFee) SuggestTransfers() []Transfer {
	type position struct {
		member string
		amount decimal.Decimal
	}

	var debtors, creditors []position
	for _, fee := range p.Members() {
		net := fee.NetBalance()
		switch {
		case net.IsNegative():
			debtors = append(debtors, position{member: fee.Member, amount: net.Neg()})
		case net.IsPositive():
			creditors = append(creditors, position{member: fee.Member, amount: net})
		}
	}

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := debtors[i].amount
		if creditors[j].amount.LessThan(amount) {
			amount = creditors[j].amount
		}

		transfers = append(transfers, Transfer{
			From:   debtors[i].member,
			To:     creditors[j].member,
			Amount: amount,
		})

		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)

		if debtors[i].amount.IsZero() {
			i++
		}
		if creditors[j].amount.IsZero() {
			j++
		}
	}

	return transfers
}

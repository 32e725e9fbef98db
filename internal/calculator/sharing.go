// Package calculator computes settlements: who paid what, who consumed
// what, and each member's net position. It is pure: it assumes the project
// it is given already satisfies the aggregate's membership invariants and it
// mutates nothing, so it can be invoked concurrently on independent copies.
package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tallyup/tallyup/internal/models"
	"github.com/tallyup/tallyup/pkg/money"
)

// MemberRecordFee is one member's contribution to one record: the amount
// they paid (the full record amount if they are the payer) and the share
// they consumed (zero if they are not a consumer).
type MemberRecordFee struct {
	Member        string
	RecordID      string
	RecordAmount  decimal.Decimal
	PaidAmount    decimal.Decimal
	ConsumeAmount decimal.Decimal
}

// MemberProjectFee aggregates one member's totals across all records of a
// project, keeping the per-record details for drill-down.
type MemberProjectFee struct {
	Member string

	// RecordAmount is the total of the amounts of records this member
	// appears in (as payer or consumer), for display and statistics.
	RecordAmount decimal.Decimal

	PaidAmount    decimal.Decimal
	ConsumeAmount decimal.Decimal

	Details []MemberRecordFee
}

// NetBalance is PaidAmount minus ConsumeAmount. Positive means the member
// is owed money, negative means they owe.
func (f *MemberProjectFee) NetBalance() decimal.Decimal {
	return f.PaidAmount.Sub(f.ConsumeAmount)
}

func (f *MemberProjectFee) addDetail(d MemberRecordFee) {
	f.RecordAmount = f.RecordAmount.Add(d.RecordAmount)
	f.PaidAmount = f.PaidAmount.Add(d.PaidAmount)
	f.ConsumeAmount = f.ConsumeAmount.Add(d.ConsumeAmount)
	f.Details = append(f.Details, d)
}

// ProjectSharingFee is the complete settlement snapshot for one project:
// every member's MemberProjectFee, including members with no activity.
type ProjectSharingFee struct {
	fees  map[string]*MemberProjectFee
	order []string
}

// MemberFee returns the fee for one member, or nil if the member is unknown.
func (p *ProjectSharingFee) MemberFee(name string) *MemberProjectFee {
	return p.fees[name]
}

// Members returns all member fees in ascending member-name order.
func (p *ProjectSharingFee) Members() []*MemberProjectFee {
	out := make([]*MemberProjectFee, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.fees[name])
	}
	return out
}

// ProjectSharing computes the settlement ledger for a project's members and
// records.
//
// For each record the payer is credited the full amount and the amount is
// divided among the consumers by their member weights (an even split when
// all weights are equal). Shares are truncated to 2 decimals and the
// leftover cents go to the consumers in ascending name order, so the
// consumed shares of every record sum exactly to its amount.
func ProjectSharing(members []models.Member, records []models.ExpenseRecord) *ProjectSharingFee {
	result := &ProjectSharingFee{fees: make(map[string]*MemberProjectFee, len(members))}

	weights := make(map[string]int64, len(members))
	for _, m := range members {
		weights[m.Name] = m.Weight
		result.fees[m.Name] = &MemberProjectFee{Member: m.Name}
		result.order = append(result.order, m.Name)
	}
	sort.Strings(result.order)

	for i := range records {
		rec := &records[i]

		consumers := append([]string(nil), rec.Consumers...)
		sort.Strings(consumers)

		consumerWeights := make([]int64, len(consumers))
		for j, c := range consumers {
			w := weights[c]
			if w < 1 {
				w = 1
			}
			consumerWeights[j] = w
		}
		shares := money.SplitWeighted(rec.Amount, consumerWeights)

		details := make(map[string]*MemberRecordFee, len(consumers)+1)
		for j, c := range consumers {
			details[c] = &MemberRecordFee{
				Member:        c,
				RecordID:      rec.ID,
				RecordAmount:  rec.Amount,
				ConsumeAmount: shares[j],
			}
		}
		payerDetail, ok := details[rec.Payer]
		if !ok {
			payerDetail = &MemberRecordFee{
				Member:        rec.Payer,
				RecordID:      rec.ID,
				RecordAmount:  rec.Amount,
				ConsumeAmount: decimal.Zero,
			}
			details[rec.Payer] = payerDetail
		}
		payerDetail.PaidAmount = rec.Amount

		involved := consumers
		if !ok {
			involved = append(involved, rec.Payer)
		}
		for _, name := range involved {
			fee := result.fees[name]
			if fee == nil {
				// Membership is guaranteed by the aggregate; a miss here
				// is a programming error, not recoverable input.
				fee = &MemberProjectFee{Member: name}
				result.fees[name] = fee
				result.order = append(result.order, name)
				sort.Strings(result.order)
			}
			fee.addDetail(*details[name])
		}
	}

	return result
}

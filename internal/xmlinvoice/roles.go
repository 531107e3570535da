package xmlinvoice

import (
	"github.com/ginjaninja78/invoice-ledger/internal/types"
)

// RoleTally counts, across one batch, how often the self identity appeared
// as seller and as buyer. A batch mixing both is suspicious (sales and
// purchase invoices fed into the same ledger) and is reported once.
//
// The tally is owned by the batch and must be advanced in input order.
type RoleTally struct {
	SelfAsSeller int
	SelfAsBuyer  int
	warned       bool
}

// Inconsistent reports whether both counts are nonzero.
func (t *RoleTally) Inconsistent() bool {
	return t.SelfAsSeller > 0 && t.SelfAsBuyer > 0
}

// Reconcile puts the counterparty in doc.Seller and self in doc.Buyer.
//
// A party matches self when its name or its tax code equals self's exactly
// (case-sensitive). When the seller matches, the parties are swapped and the
// document is labeled buyer-of-record. When neither matches, the buyer is
// reported with independent name and tax-code mismatch warnings and the
// document is processed as is. With no self identity configured nothing
// happens.
func Reconcile(doc *types.Document, self types.Party, tally *RoleTally) {
	if self.Name == "" && self.TaxCode == "" {
		return
	}

	switch {
	case isSelf(doc.Seller, self):
		doc.Seller, doc.Buyer = doc.Buyer, doc.Seller
		doc.Role = types.RoleBuyerOfRecord
		tally.SelfAsSeller++
	case isSelf(doc.Buyer, self):
		doc.Role = types.RoleSellerOfRecord
		tally.SelfAsBuyer++
	default:
		if doc.Buyer.Name != self.Name {
			doc.Warn(types.WarnNameMismatch, "buyer.name", types.ConfidenceAnchored,
				"buyer name %q does not match %q", doc.Buyer.Name, self.Name)
		}
		if doc.Buyer.TaxCode != self.TaxCode {
			doc.Warn(types.WarnTaxCodeMismatch, "buyer.tax_code", types.ConfidenceAnchored,
				"buyer tax code %q does not match %q", doc.Buyer.TaxCode, self.TaxCode)
		}
	}

	if tally.Inconsistent() && !tally.warned {
		tally.warned = true
		doc.Warn(types.WarnRoleInconsistency, "", types.ConfidenceAnchored,
			"batch mixes invoices issued by us (%d) and issued to us (%d)", tally.SelfAsSeller, tally.SelfAsBuyer)
	}
}

func isSelf(p, self types.Party) bool {
	if self.Name != "" && p.Name == self.Name {
		return true
	}
	return self.TaxCode != "" && p.TaxCode == self.TaxCode
}

package till

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/pos-till/internal/domain/cart"
	"github.com/xenking/pos-till/internal/domain/product"
	"github.com/xenking/pos-till/internal/domain/voucher"
)

// ScanKind is what a scanned code resolved to.
type ScanKind string

const (
	ScanProduct  ScanKind = "product"
	ScanVoucher  ScanKind = "voucher"
	ScanNotFound ScanKind = "not_found"
)

// ScanResult is the outcome of one scanned code. Message is shown to the
// cashier.
type ScanResult struct {
	Kind    ScanKind
	Success bool
	Message string
	Product *product.Product
	Voucher cart.ApplyResult
	View    View
}

// Scan routes a decoded scanner string: a product barcode adds one unit of
// the product, otherwise a voucher GUID applies the voucher, otherwise the
// code is reported as not found. Barcodes always win over GUIDs.
func (s *Session) Scan(ctx context.Context, code string) (ScanResult, error) {
	if !s.scanner.IsReady() {
		return ScanResult{}, ErrScannerNotReady
	}
	code = strings.TrimSpace(code)

	p, err := s.products.FindByBarcode(ctx, code)
	if err != nil {
		return ScanResult{}, errors.Wrap(err, "find product by barcode")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p != nil {
		res := ScanResult{Kind: ScanProduct, Product: p}
		if err := s.add(*p, 1); err != nil {
			if !errors.Is(err, ErrOutOfStock) && !errors.Is(err, cart.ErrInsufficientStock) {
				return ScanResult{}, err
			}
			res.Message = fmt.Sprintf("%s is out of stock", p.Name)
		} else {
			res.Success = true
			res.Message = fmt.Sprintf("Added %s", p.Name)
		}
		res.View = s.view()
		return res, nil
	}

	applied := s.cart.ApplyVoucherByGUID(ctx, code)
	if errors.Is(applied.Err, voucher.ErrNotFound) {
		return ScanResult{
			Kind:    ScanNotFound,
			Message: fmt.Sprintf("No product or voucher matches %q", code),
			View:    s.view(),
		}, nil
	}
	return ScanResult{
		Kind:    ScanVoucher,
		Success: applied.Success,
		Message: applied.Message,
		Voucher: applied,
		View:    s.view(),
	}, nil
}

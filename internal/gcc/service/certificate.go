package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/smallbiznis/gascustody/internal/gcc/domain"
	lettertemplatedomain "github.com/smallbiznis/gascustody/internal/lettertemplate/domain"
	"github.com/smallbiznis/gascustody/internal/providers/pdf"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

func (s *Service) Certificate(ctx context.Context, gccID string) (domain.Certificate, error) {
	if s.pdf == nil {
		return domain.Certificate{}, domain.ErrCertificateUnavailable
	}

	agg, err := s.GetAggregate(ctx, gccID)
	if err != nil {
		return domain.Certificate{}, err
	}
	gcc := agg.Gcc

	customer, site, err := s.customers.ResolveSite(ctx, gcc.CustomerID, gcc.CustomerSiteID)
	if err != nil {
		return domain.Certificate{}, err
	}

	letter, err := s.letterFor(ctx, gcc.LetterID)
	if err != nil {
		return domain.Certificate{}, err
	}

	loc := s.billing.Get().Location()
	data := pdf.CertificateData{
		Reference:       gcc.ID.String(),
		GccDate:         gcc.GccDate.In(loc).Format(dateLayout),
		Period:          gcc.PeriodStart.In(loc).Format("January 2006"),
		Status:          gcc.Status.String(),
		CustomerName:    customer.Name,
		CustomerAddress: customer.Address,
		SiteName:        site.Name,
		Letter:          letter,
		TotalVolume:     formatVolume(agg.TotalVolume),
	}
	if !gcc.CapexRecoveryAmount.IsZero() {
		data.CapexRecovery = gcc.CapexRecoveryAmount.StringFixed(2)
	}
	for _, item := range agg.ListItem {
		data.Items = append(data.Items, pdf.CertificateItem{
			Date:       item.OriginalDate.In(loc).Format(dateLayout),
			Volume:     formatVolume(item.Volume),
			Inlet:      formatVolume(item.Inlet),
			Outlet:     formatVolume(item.Outlet),
			Allocation: formatVolume(item.Allocation),
			Nomination: formatVolume(item.Nomination),
		})
	}
	if a := agg.GccApprovedByAdmin; a != nil {
		data.AdminApprovedAt = a.CreatedAt.In(loc).Format(dateLayout)
	}
	if c := agg.GccApprovedByCustomer; c != nil {
		data.CustomerSignedBy = c.CustomerName
		data.CustomerSignature = c.Signature
		data.CustomerSignedAt = c.Date.In(loc).Format(dateLayout)
	}

	content, err := s.pdf.GenerateCertificate(ctx, data)
	if err != nil {
		s.log.Error("failed to render certificate", zap.String("gcc_id", gcc.ID.String()), zap.Error(err))
		return domain.Certificate{}, err
	}

	return domain.Certificate{
		FileName: pdf.FileName("gcc", customer.Name, site.Name, gcc.PeriodStart.In(loc).Format("2006-01")),
		Content:  content,
	}, nil
}

// letterFor returns the letter body, or "" when the template is not configured.
func (s *Service) letterFor(ctx context.Context, letterID int64) (string, error) {
	if s.letters == nil || letterID <= 0 {
		return "", nil
	}
	tpl, err := s.letters.GetByID(ctx, strconv.FormatInt(letterID, 10))
	if err != nil {
		if errors.Is(err, lettertemplatedomain.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return tpl.Letter, nil
}

func formatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

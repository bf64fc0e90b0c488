package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"deflect.app/relay/internal/model"
	"deflect.app/relay/internal/service"
)

var _ = Describe("Policies", func() {
	var (
		ctx      context.Context
		policies *mockPolicyStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		policies = &mockPolicyStore{}
	})

	Describe("PolicyResolver", func() {
		It("falls back to the default policy", func() {
			policy, err := service.NewPolicyResolver(policies).PolicyFor(ctx, 7)

			Expect(err).NotTo(HaveOccurred())
			Expect(policy).To(Equal(model.DefaultPolicy(7)))
			Expect(policy.AutoResponseEnabled).To(BeFalse())
		})

		It("returns the saved policy", func() {
			policies.getFn = func(_ context.Context, accountID int64) (*model.DeflectionPolicy, error) {
				return &model.DeflectionPolicy{AccountID: accountID, AutoResponseEnabled: true, ConfidenceThreshold: 0.7}, nil
			}

			policy, err := service.NewPolicyResolver(policies).PolicyFor(ctx, 7)

			Expect(err).NotTo(HaveOccurred())
			Expect(policy.ConfidenceThreshold).To(Equal(0.7))
		})

		It("propagates backend errors", func() {
			policies.getFn = func(context.Context, int64) (*model.DeflectionPolicy, error) {
				return nil, errors.New("db down")
			}

			_, err := service.NewPolicyResolver(policies).PolicyFor(ctx, 7)
			Expect(err).To(MatchError(ContainSubstring("loading policy")))
		})
	})

	Describe("Update", func() {
		var svc service.PolicyService

		BeforeEach(func() {
			svc = service.NewPolicyService(policies)
		})

		It("saves a valid policy and defaults the language", func() {
			policy := model.DefaultPolicy(7)
			policy.AutoResponseEnabled = true
			policy.ResponseLanguage = ""
			policy.BusinessHours = model.BusinessHours{Enabled: true, Start: "09:00", End: "17:00", Timezone: "Europe/Berlin"}

			saved, err := svc.Update(ctx, policy)

			Expect(err).NotTo(HaveOccurred())
			Expect(saved.ResponseLanguage).To(Equal("en"))
			Expect(saved.UpdatedAt).NotTo(BeZero())
			Expect(policies.upserted).To(HaveLen(1))
		})

		DescribeTable("rejects invalid policies",
			func(mutate func(p *model.DeflectionPolicy)) {
				policy := model.DefaultPolicy(7)
				mutate(policy)

				_, err := svc.Update(ctx, policy)

				Expect(errors.Is(err, service.ErrInvalidPolicy)).To(BeTrue())
				Expect(policies.upserted).To(BeEmpty())
			},
			Entry("confidence above 1", func(p *model.DeflectionPolicy) { p.ConfidenceThreshold = 1.2 }),
			Entry("negative escalation", func(p *model.DeflectionPolicy) { p.EscalationThreshold = -0.1 }),
			Entry("bad start time", func(p *model.DeflectionPolicy) {
				p.BusinessHours = model.BusinessHours{Enabled: true, Start: "9am", End: "17:00"}
			}),
			Entry("unknown timezone", func(p *model.DeflectionPolicy) {
				p.BusinessHours = model.BusinessHours{Enabled: true, Start: "09:00", End: "17:00", Timezone: "Mars/Olympus"}
			}),
			Entry("missing account", func(p *model.DeflectionPolicy) { p.AccountID = 0 }),
		)
	})
})

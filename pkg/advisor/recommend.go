package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"costlens/pkg/analysis"
)

// Impact levels
const (
	ImpactHigh   = "high"
	ImpactMedium = "medium"
)

// Recommendation categories
const (
	CategoryReservedInstances   = "reserved_instances"
	CategoryStorageOptimization = "storage_optimization"
	CategorySupportOptimization = "support_optimization"
	CategoryComputeOptimization = "compute_optimization"
	CategoryCostConcentration   = "cost_concentration"
)

// Recommendation is one optimization suggestion
type Recommendation struct {
	Title                  string  `json:"title"`
	Impact                 string  `json:"impact"`
	EstimatedSavingPercent float64 `json:"estimated_saving_percent"`
	Description            string  `json:"description"`
	Service                string  `json:"service"`
	Category               string  `json:"category"`
}

type rule struct {
	service   string
	match     func(name string) bool
	threshold float64 // share of total, percent
	build     func(ctx context.Context, a *Advisor, total, share float64) Recommendation
}

var rules = []rule{
	{
		service:   "RDS",
		match:     func(s string) bool { return strings.Contains(s, "RDS") || strings.Contains(s, "Relational Database") },
		threshold: 20,
		build: func(ctx context.Context, a *Advisor, total, share float64) Recommendation {
			fallback := fmt.Sprintf("RDS represents %.1f%% of costs. Consider Reserved Instances to save up to 40%%.", share)
			prompt := fmt.Sprintf("Write a FinOps recommendation about optimizing RDS.\nRDS represents %.1f%% of the total cost ($%.2f).\nMention Reserved Instances, Savings Plans and right-sizing.", share, total)
			return Recommendation{
				Title:                  "Optimize RDS with Reserved Instances",
				Impact:                 ImpactHigh,
				EstimatedSavingPercent: 20,
				Description:            a.generate(ctx, consultantPrompt, prompt, fallback),
				Category:               CategoryReservedInstances,
			}
		},
	},
	{
		service:   "S3",
		match:     func(s string) bool { return strings.Contains(s, "S3") && !strings.Contains(s, "Glacier") },
		threshold: 15,
		build: func(ctx context.Context, a *Advisor, total, share float64) Recommendation {
			fallback := fmt.Sprintf("S3 represents %.1f%% of costs. Configure lifecycle policies to move old data to S3-IA or Glacier.", share)
			prompt := fmt.Sprintf("Write a FinOps recommendation about optimizing S3.\nS3 represents %.1f%% of the total cost ($%.2f).\nMention lifecycle policies, S3-IA and Glacier.", share, total)
			return Recommendation{
				Title:                  "Optimize S3 storage with lifecycle policies",
				Impact:                 ImpactMedium,
				EstimatedSavingPercent: 30,
				Description:            a.generate(ctx, consultantPrompt, prompt, fallback),
				Category:               CategoryStorageOptimization,
			}
		},
	},
	{
		service:   "Support",
		match:     func(s string) bool { return strings.Contains(s, "Support") },
		threshold: 5,
		build: func(_ context.Context, _ *Advisor, _, share float64) Recommendation {
			return Recommendation{
				Title:                  "Review the support plan level",
				Impact:                 ImpactMedium,
				EstimatedSavingPercent: 50,
				Description:            fmt.Sprintf("Support cost (%.1f%% of the total) can be reduced by reviewing the level actually needed.", share),
				Category:               CategorySupportOptimization,
			}
		},
	},
	{
		service:   "EC2",
		match:     func(s string) bool { return strings.Contains(s, "EC2") },
		threshold: 25,
		build: func(ctx context.Context, a *Advisor, total, share float64) Recommendation {
			fallback := fmt.Sprintf("EC2 represents %.1f%% of costs. Consider Reserved Instances or Savings Plans.", share)
			prompt := fmt.Sprintf("Write a FinOps recommendation about optimizing EC2.\nEC2 represents %.1f%% of the total cost ($%.2f).\nMention Reserved Instances, Savings Plans, Spot Instances and right-sizing.", share, total)
			return Recommendation{
				Title:                  "Optimize EC2 instances",
				Impact:                 ImpactHigh,
				EstimatedSavingPercent: 15,
				Description:            a.generate(ctx, consultantPrompt, prompt, fallback),
				Category:               CategoryComputeOptimization,
			}
		},
	},
}

// ConcentrationThreshold is the share above which the top service is flagged
const ConcentrationThreshold = 40.0

// Recommend applies the share-of-total rules to service totals
func (a *Advisor) Recommend(ctx context.Context, totals []analysis.ServiceTotal) []Recommendation {
	var grand float64
	for _, t := range totals {
		grand += t.TotalCost
	}
	if len(totals) == 0 || grand <= 0 {
		return []Recommendation{}
	}

	out := make([]Recommendation, 0, len(rules)+1)
	for _, r := range rules {
		var sum float64
		matched := false
		for _, t := range totals {
			if r.match(t.Service) {
				sum += t.TotalCost
				matched = true
			}
		}
		if !matched {
			continue
		}
		share := sum / grand * 100
		if share > r.threshold {
			rec := r.build(ctx, a, sum, share)
			rec.Service = r.service
			out = append(out, rec)
		}
	}

	top := lo.MaxBy(analysis.Percentages(totals), func(a, b analysis.ServicePercentage) bool {
		return a.Percentage > b.Percentage
	})
	if top.Percentage > ConcentrationThreshold {
		out = append(out, Recommendation{
			Title:                  fmt.Sprintf("Review cost concentration in %s", top.Service),
			Impact:                 ImpactHigh,
			EstimatedSavingPercent: 10,
			Description:            fmt.Sprintf("%s represents %.1f%% of the total. Consider diversifying or optimizing it.", top.Service, top.Percentage),
			Service:                top.Service,
			Category:               CategoryCostConcentration,
		})
	}
	return out
}

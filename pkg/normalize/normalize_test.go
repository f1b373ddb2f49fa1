package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costlens/pkg/frame"
)

func TestDetectSchema(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		hint    Provider
		want    Provider
	}{
		{"aws", []string{"Start", "Service", "Amount"}, "", ProviderAWS},
		{"aws any case", []string{"start", "SERVICE", "amount", "Extra"}, "", ProviderAWS},
		{"oci", []string{"lineItem/intervalUsageStart", "product/service", "cost/myCost"}, "", ProviderOCI},
		{"oci wins over aws", []string{"lineItem/intervalUsageStart", "product/service", "Start", "Service", "Amount"}, "", ProviderOCI},
		{"partial aws", []string{"Start", "Service"}, "", ProviderGeneric},
		{"generic", []string{"date", "service", "cost"}, "", ProviderGeneric},
		{"hint trusted", []string{"date", "service", "cost"}, ProviderAWS, ProviderAWS},
		{"azure hint", []string{"date"}, ProviderAzure, ProviderAzure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := frame.New(tt.columns, nil)
			assert.Equal(t, tt.want, DetectSchema(f, tt.hint))
		})
	}
}

func TestNormalizeAWSExample(t *testing.T) {
	f := frame.New([]string{"Start", "Service", "Amount"}, [][]string{{"2024-01-01", "EC2", "100.0"}})

	res := NewNormalizer().Normalize(f, "")
	require.Equal(t, ProviderAWS, res.Provider)
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	require.NotNil(t, rec.UsageDate)
	assert.Equal(t, "2024-01-01", rec.UsageDate.Format("2006-01-02"))
	assert.Equal(t, "2024-01", rec.Month)
	assert.Equal(t, "EC2", rec.ServiceName)
	assert.Equal(t, CategoryCompute, rec.ServiceCategory)
	assert.Equal(t, 100.0, rec.CostAmount)
	assert.Equal(t, "aws_account", rec.AccountScope)
	assert.Equal(t, "USD", rec.Currency)
	assert.Nil(t, rec.AccountName)
	assert.Nil(t, rec.Region)
	assert.Nil(t, rec.Tags)
}

func TestNormalizeHintWithoutSchemaColumns(t *testing.T) {
	f := frame.New([]string{"usage_date", "service", "cost"}, [][]string{{"2024-03-02", "EC2", "4"}})

	for _, hint := range []Provider{ProviderAWS, ProviderOCI} {
		t.Run(string(hint), func(t *testing.T) {
			res := NewNormalizer().Normalize(f, hint)
			require.Equal(t, hint, res.Provider)
			require.Len(t, res.Records, 1)
			rec := res.Records[0]
			require.NotNil(t, rec.UsageDate)
			assert.Equal(t, "EC2", rec.ServiceName)
			assert.Equal(t, 4.0, rec.CostAmount)
			assert.Equal(t, hint, rec.CloudProvider)
		})
	}

	assert.Equal(t, ProviderGeneric, Layout(f, ProviderAWS))
	assert.Equal(t, ProviderAWS, Layout(frame.New([]string{"Start", "Service", "Amount"}, nil), ProviderAWS))
	assert.Equal(t, ProviderGeneric, Layout(f, ProviderAzure))
}

func TestNormalizeOCIUnits(t *testing.T) {
	f := frame.New(
		[]string{"lineItem/intervalUsageStart", "product/service", "usage/consumedQuantity", "usage/consumedQuantityUnits", "tags/team", "tags/env"},
		[][]string{
			{"2024-02-01T00:00Z", "Object Storage", "1000", "BYTES", "data", "prod"},
			{"2024-02-01T00:00Z", "Compute", "7200000", "MS", "", ""},
			{"2024-02-01T00:00Z", "Block Volume", "2592000", "GB_MS", "", ""},
			{"2024-02-01T00:00Z", "Functions", "42", "CALLS", "", ""},
		},
	)

	res := NewNormalizer().Normalize(f, "")
	require.Equal(t, ProviderOCI, res.Provider)
	require.Len(t, res.Records, 4)

	assert.InDelta(t, 9.31e-7, res.Records[0].CostAmount, 1e-9)
	assert.InDelta(t, 2.0, res.Records[1].CostAmount, 1e-12)
	assert.InDelta(t, 1.0, res.Records[2].CostAmount, 1e-12)
	assert.Equal(t, 42.0, res.Records[3].CostAmount)

	require.NotNil(t, res.Records[0].Tags)
	assert.Equal(t, "env=prod;team=data", *res.Records[0].Tags)
	assert.Nil(t, res.Records[1].Tags)
	assert.Equal(t, "oci_compartment", res.Records[0].AccountScope)
	assert.Equal(t, CategoryStorage, res.Records[0].ServiceCategory)
}

func TestNormalizeOCIPrefersBilledCost(t *testing.T) {
	f := frame.New(
		[]string{"lineItem/intervalUsageStart", "product/service", "cost/myCost", "usage/consumedQuantity", "usage/consumedQuantityUnits"},
		[][]string{{"2024-02-01", "Compute", "3.5", "1000", "BYTES"}},
	)
	res := NewNormalizer().Normalize(f, "")
	require.Len(t, res.Records, 1)
	assert.Equal(t, 3.5, res.Records[0].CostAmount)
}

func TestNormalizeGenericDefaults(t *testing.T) {
	f := frame.New(
		[]string{"Data", "Produto", "Valor", "Região"},
		[][]string{
			{"2024-03-10", "Virtual Machines", "1.234,50", "brazilsouth"},
			{"not a date", "", "abc", ""},
		},
	)

	res := NewNormalizer().Normalize(f, ProviderAzure)
	require.Equal(t, ProviderAzure, res.Provider)
	require.Len(t, res.Records, 2)

	first := res.Records[0]
	assert.Equal(t, "Virtual Machines", first.ServiceName)
	assert.Equal(t, 1234.5, first.CostAmount)
	assert.Equal(t, "azure_subscription", first.AccountScope)
	assert.Equal(t, CategoryCompute, first.ServiceCategory)

	second := res.Records[1]
	assert.Nil(t, second.UsageDate)
	assert.Equal(t, NoDateMonth, second.Month)
	assert.Equal(t, UnknownService, second.ServiceName)
	assert.Equal(t, 0.0, second.CostAmount)
}

func TestColumnMapperResolutionOrder(t *testing.T) {
	f := frame.New(
		[]string{"when", "SERVICE_NAME", "service", "cost", "amount", "Currency"},
		[][]string{
			{"2024-01-05", "a", "b", "1", "2", "EUR"},
			{"2024-01-06", "a", "b", "1", "2", "EUR"},
		},
	)
	mp := NewColumnMapper().Map(f)

	assert.Equal(t, "when", mp.Names[RoleDate])
	assert.True(t, mp.DateInferred)
	assert.Equal(t, "SERVICE_NAME", mp.Names[RoleService])
	assert.Equal(t, "amount", mp.Names[RoleCost])
	assert.Equal(t, "Currency", mp.Names[RoleCurrency])
	assert.False(t, mp.Has(RoleRegion))
}

func TestColumnMapperDateInferenceThreshold(t *testing.T) {
	f := frame.New(
		[]string{"x", "y"},
		[][]string{
			{"2024-01-01", "2024-01-01"},
			{"junk", "2024-02-01"},
			{"junk", "oops"},
			{"", "2024-04-01"},
			{"junk", ""},
		},
	)
	mp := NewColumnMapper().Map(f)
	assert.Equal(t, "y", mp.Names[RoleDate])
}

func TestColumnMapperNoDate(t *testing.T) {
	f := frame.New([]string{"service", "cost"}, [][]string{{"S3", "10"}})
	mp := NewColumnMapper().Map(f)
	assert.False(t, mp.Has(RoleDate))
	assert.Equal(t, -1, mp.Column(RoleDate))
}

func TestUnitNormalizer(t *testing.T) {
	u := NewOCIUnitNormalizer()
	tests := []struct {
		unit  string
		value float64
		want  float64
		rule  string
	}{
		{"BYTES", float64(1 << 30), 1, "bytes"},
		{"bytes", 1000, 1000.0 / (1 << 30), "bytes"},
		{"ms", 3_600_000, 1, "milliseconds"},
		{"MILLISECONDS", 1_800_000, 0.5, "milliseconds"},
		{"GB_MS", 2_592_000, 1, "byte_months"},
		{"BYTE_MONTHS", 5_184_000, 2, "byte_months"},
		{"OCPU_HOURS", 12, 12, ""},
		{"ITEMS", 40, 40, ""},
		{"REQUESTS/MS", 7_200_000, 2, "milliseconds"},
		{"", 7, 7, ""},
	}
	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			assert.InDelta(t, tt.want, u.Normalize(tt.value, tt.unit), 1e-12)
			assert.Equal(t, tt.rule, u.RuleFor(tt.unit))
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"100", 100, true},
		{"100.25", 100.25, true},
		{"$1,234.56", 1234.56, true},
		{"R$ 1.234,56", 1234.56, true},
		{"10,5", 10.5, true},
		{"1,234", 1234, true},
		{"(12.5)", -12.5, true},
		{"1e3", 1000, true},
		{"", 0, false},
		{"NaN", 0, false},
		{"2024-01-01", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseAmount(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9, tt.in)
		}
		assert.False(t, math.IsNaN(got))
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		service  string
		provider Provider
		want     Category
	}{
		{"Amazon EC2", ProviderAWS, CategoryCompute},
		{"Amazon S3", ProviderAWS, CategoryStorage},
		{"S3-Glacier($)", ProviderAWS, CategoryStorage},
		{"AWS Data Transfer", ProviderAWS, CategoryNetwork},
		{"Amazon RDS", ProviderAWS, CategoryManaged},
		{"Redshift", ProviderAWS, CategoryOther},
		{"Athena Data Catalog", ProviderAWS, CategoryManaged},
		{"CloudWatch Logs", ProviderAWS, CategoryStorage},
		{"", ProviderAWS, CategoryOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Categorize(tt.service, tt.provider), tt.service)
	}
}

func TestDefaultAccountScope(t *testing.T) {
	assert.Equal(t, "aws_account", DefaultAccountScope(ProviderAWS))
	assert.Equal(t, "oci_compartment", DefaultAccountScope(ProviderOCI))
	assert.Equal(t, "azure_subscription", DefaultAccountScope(ProviderAzure))
	assert.Equal(t, "multicloud_scope", DefaultAccountScope(ProviderGeneric))
}

func TestParseProvider(t *testing.T) {
	assert.Equal(t, ProviderAWS, ParseProvider(" aws "))
	assert.Equal(t, ProviderOCI, ParseProvider("Oracle"))
	assert.Equal(t, ProviderAzure, ParseProvider("azure"))
	assert.Equal(t, Provider(""), ParseProvider("gcp"))
}

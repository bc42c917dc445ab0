package validation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/propfolio/statement-pipeline/internal/domain/statement"
	"github.com/propfolio/statement-pipeline/pkg/amount"
)

// Canonical account codes the built-in rules read.
const (
	codeTotalCash        = "1099-0000"
	codeCashOperating    = "1010-0000"
	codeCashReserves     = "1020-0000"
	codeEscrowDeposits   = "1030-0000"
	codeAccumDepr        = "1590-0000"
	codeTotalAssets      = "1999-0000"
	codeMortgagePayable  = "2500-0000"
	codeTotalLiabilities = "2999-0000"
	codeDistributions    = "3020-0000"
	codeTotalEquity      = "3999-0000"
	codeRentalIncome     = "4010-0000"
	codeTotalIncome      = "4999-0000"
	codeTotalExpenses    = "5999-0000"
	codeCashFromOps      = "6010-0000"
	codeCashFromInvest   = "6020-0000"
	codeCashFromFin      = "6030-0000"
	codeBeginningCash    = "6100-0000"
	codeEndingCash       = "6199-0000"
	codePrincipalBalance = "7010-0000"
	codeEscrowBalance    = "7040-0000"
	codeAnnualDebtSvc    = "7050-0000"
	codeMonthlyRent      = "7510-0000"
	codeAnnualizedRent   = "7520-0000"
)

// Tolerances are absolute bands, never relative percentages, to avoid false
// negatives on small denominators.
var (
	tolCent       = decimal.RequireFromString("0.01")
	tolDollar     = decimal.NewFromInt(1)
	tolTenDollars = decimal.NewFromInt(10)
	tolHundred    = decimal.NewFromInt(100)
	tolThousand   = decimal.NewFromInt(1000)
	dscrCovenant  = decimal.RequireFromString("1.2")
	monthsPerYear = decimal.NewFromInt(12)
	doubledFactor = decimal.NewFromInt(2)
)

// builtinRules is the reference rule set keyed by statement type.
var builtinRules = map[statement.Type][]Rule{
	statement.BalanceSheet: {
		withinTolerance("balance_identity", ScopeSingleDocument, SeverityCritical, tolCent, balanceIdentity),
		withinTolerance("section_sum_assets", ScopeSingleDocument, SeverityCritical, tolCent, sectionSum(codeTotalAssets)),
		withinTolerance("section_sum_liabilities", ScopeSingleDocument, SeverityCritical, tolCent, sectionSum(codeTotalLiabilities)),
		withinTolerance("section_sum_equity", ScopeSingleDocument, SeverityCritical, tolCent, sectionSum(codeTotalEquity)),
		atMost("accumulated_depreciation_nonpositive", SeverityCritical, decimal.Zero, field(codeAccumDepr)),
		atMost("distributions_nonpositive", SeverityCritical, decimal.Zero, field(codeDistributions)),
		atLeast("total_cash_nonnegative", ScopeSingleDocument, SeverityWarning, decimal.Zero, totalCash),
		withinTolerance("mortgage_principal_tieout", ScopeCrossDocument, SeverityCritical, tolHundred, mortgageTieoutFromBalanceSheet),
		withinTolerance("ending_cash_tieout", ScopeCrossDocument, SeverityCritical, tolTenDollars, endingCashTieoutFromBalanceSheet),
		deprecatedAccountUsage(),
		roundAmounts(),
	},
	statement.IncomeStatement: {
		withinTolerance("section_sum_income", ScopeSingleDocument, SeverityCritical, tolCent, sectionSum(codeTotalIncome)),
		withinTolerance("section_sum_expenses", ScopeSingleDocument, SeverityCritical, tolCent, sectionSum(codeTotalExpenses)),
		withinTolerance("rent_roll_income_tieout", ScopeCrossDocument, SeverityWarning, tolThousand, rentRollTieout),
		atLeast("dscr_covenant", ScopeCrossDocument, SeverityWarning, dscrCovenant, debtServiceCoverage),
		expenseDoubledTrend(),
		deprecatedAccountUsage(),
		roundAmounts(),
	},
	statement.CashFlow: {
		withinTolerance("ending_cash_identity", ScopeSingleDocument, SeverityCritical, tolCent, endingCashIdentity),
		withinTolerance("balance_sheet_cash_tieout", ScopeCrossDocument, SeverityCritical, tolTenDollars, balanceSheetCashTieout),
		roundAmounts(),
	},
	statement.MortgageStatement: {
		atLeast("principal_nonnegative", ScopeSingleDocument, SeverityCritical, decimal.Zero, field(codePrincipalBalance)),
		atLeast("escrow_nonnegative", ScopeSingleDocument, SeverityWarning, decimal.Zero, field(codeEscrowBalance)),
		withinTolerance("balance_sheet_debt_tieout", ScopeCrossDocument, SeverityCritical, tolHundred, debtTieoutFromMortgage),
	},
	statement.RentRoll: {
		withinTolerance("annualized_rent_identity", ScopeSingleDocument, SeverityWarning, tolDollar, annualizedRentIdentity),
		roundAmounts(),
	},
}

// field lifts a single account lookup into a check input.
func field(code string) func(rc *Context) (decimal.Decimal, bool) {
	return func(rc *Context) (decimal.Decimal, bool) {
		return rc.Get(code)
	}
}

// balanceIdentity asserts total assets equal liabilities plus equity.
func balanceIdentity(rc *Context) (expected, actual decimal.Decimal, ok bool) {
	assets, okA := rc.Get(codeTotalAssets)
	liab, okL := rc.Get(codeTotalLiabilities)
	equity, okE := rc.Get(codeTotalEquity)
	if !okA || !okL || !okE {
		return decimal.Zero, decimal.Zero, false
	}
	return liab.Add(equity), assets, true
}

// sectionSum asserts a declared total equals the sum of its present leaves.
func sectionSum(totalCode string) func(rc *Context) (decimal.Decimal, decimal.Decimal, bool) {
	return func(rc *Context) (decimal.Decimal, decimal.Decimal, bool) {
		declared, ok := rc.Get(totalCode)
		if !ok {
			return decimal.Zero, decimal.Zero, false
		}
		sum, n := rc.SumLeaves(totalCode)
		if n == 0 {
			return decimal.Zero, decimal.Zero, false
		}
		return sum, declared, true
	}
}

// totalCash prefers the declared cash subtotal and falls back to summing
// the cash leaf accounts.
func totalCash(rc *Context) (decimal.Decimal, bool) {
	if d, ok := rc.Get(codeTotalCash); ok {
		return d, true
	}
	sum := decimal.Zero
	found := false
	for _, code := range []string{codeCashOperating, codeCashReserves, codeEscrowDeposits} {
		if d, ok := rc.Get(code); ok {
			sum = sum.Add(d)
			found = true
		}
	}
	return sum, found
}

func mortgageTieoutFromBalanceSheet(rc *Context) (decimal.Decimal, decimal.Decimal, bool) {
	debt, ok := rc.Get(codeMortgagePayable)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	sib, ok := rc.sibling(statement.MortgageStatement)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	principal, ok := sib.Get(codePrincipalBalance)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	return principal, debt, true
}

func debtTieoutFromMortgage(rc *Context) (decimal.Decimal, decimal.Decimal, bool) {
	principal, ok := rc.Get(codePrincipalBalance)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	sib, ok := rc.sibling(statement.BalanceSheet)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	debt, ok := sib.Get(codeMortgagePayable)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	return debt, principal, true
}

func endingCashTieoutFromBalanceSheet(rc *Context) (decimal.Decimal, decimal.Decimal, bool) {
	cash, ok := totalCash(rc)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	sib, ok := rc.sibling(statement.CashFlow)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	ending, ok := sib.Get(codeEndingCash)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	return ending, cash, true
}

func balanceSheetCashTieout(rc *Context) (decimal.Decimal, decimal.Decimal, bool) {
	ending, ok := rc.Get(codeEndingCash)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	sib, ok := rc.sibling(statement.BalanceSheet)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	cash, ok := totalCash(sib)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	return cash, ending, true
}

func endingCashIdentity(rc *Context) (decimal.Decimal, decimal.Decimal, bool) {
	ending, ok := rc.Get(codeEndingCash)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	beginning, ok := rc.Get(codeBeginningCash)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	sum := beginning
	for _, code := range []string{codeCashFromOps, codeCashFromInvest, codeCashFromFin} {
		if d, ok := rc.Get(code); ok {
			sum = sum.Add(d)
		}
	}
	return sum, ending, true
}

// rentRollTieout compares the rent roll's annualized rent with twelve
// months of the income statement's rental income. The wide tolerance
// absorbs mid-period escalations and vacancy timing.
func rentRollTieout(rc *Context) (decimal.Decimal, decimal.Decimal, bool) {
	rental, ok := rc.Get(codeRentalIncome)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	sib, ok := rc.sibling(statement.RentRoll)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	annualized, ok := sib.Get(codeAnnualizedRent)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	return annualized, rental.Mul(monthsPerYear), true
}

func annualizedRentIdentity(rc *Context) (decimal.Decimal, decimal.Decimal, bool) {
	monthly, ok := rc.Get(codeMonthlyRent)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	annualized, ok := rc.Get(codeAnnualizedRent)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	return monthly.Mul(monthsPerYear), annualized, true
}

// debtServiceCoverage computes NOI over annual debt service from the
// mortgage sibling.
func debtServiceCoverage(rc *Context) (decimal.Decimal, bool) {
	income, ok := rc.Get(codeTotalIncome)
	if !ok {
		return decimal.Zero, false
	}
	expenses, ok := rc.Get(codeTotalExpenses)
	if !ok {
		return decimal.Zero, false
	}
	sib, ok := rc.sibling(statement.MortgageStatement)
	if !ok {
		return decimal.Zero, false
	}
	ads, ok := sib.Get(codeAnnualDebtSvc)
	if !ok || !ads.IsPositive() {
		return decimal.Zero, false
	}
	noi := income.Sub(expenses).Mul(monthsPerYear)
	return noi.DivRound(ads, 4), true
}

// expenseDoubledTrend flags expense leaves that more than doubled against
// the prior period. Skipped entirely when no prior period is available.
func expenseDoubledTrend() Rule {
	const name = "expense_doubled_mom"
	return Rule{Name: name, Scope: ScopeCrossDocument, Severity: SeverityWarning, Check: func(rc *Context) []Result {
		if rc.Prior == nil {
			return nil
		}
		var results []Result
		compared := 0
		for _, code := range rc.Codes() {
			e, ok := rc.Entry(code)
			if !ok || e.Category != "EXPENSES" || e.IsTotal || e.IsSubtotal {
				continue
			}
			prior, ok := rc.Prior.Get(code)
			if !ok || !prior.IsPositive() {
				continue
			}
			compared++
			actual, _ := rc.Get(code)
			limit := prior.Mul(doubledFactor)
			if actual.GreaterThan(limit) {
				results = append(results, Result{
					RuleName:   name,
					Scope:      ScopeCrossDocument,
					Severity:   SeverityWarning,
					Passed:     false,
					Expected:   limit,
					Actual:     actual,
					Difference: actual.Sub(limit).Abs(),
					Detail:     fmt.Sprintf("%s (%s) more than doubled vs prior period", e.Name, code),
				})
			}
		}
		if len(results) == 0 && compared > 0 {
			results = append(results, Result{
				RuleName: name,
				Scope:    ScopeCrossDocument,
				Severity: SeverityWarning,
				Passed:   true,
				Detail:   fmt.Sprintf("%d expense accounts within trend bounds", compared),
			})
		}
		return results
	}}
}

// deprecatedAccountUsage reports mappings onto accounts marked deprecated
// in the chart.
func deprecatedAccountUsage() Rule {
	const name = "deprecated_account_usage"
	return Rule{Name: name, Scope: ScopeSingleDocument, Severity: SeverityInfo, Check: func(rc *Context) []Result {
		var results []Result
		for _, code := range rc.Codes() {
			if e, ok := rc.Entry(code); ok && e.Deprecated {
				actual, _ := rc.Get(code)
				results = append(results, Result{
					RuleName: name,
					Scope:    ScopeSingleDocument,
					Severity: SeverityInfo,
					Passed:   false,
					Actual:   actual,
					Detail:   fmt.Sprintf("deprecated account %s (%s) in use", code, e.Name),
				})
			}
		}
		if len(results) == 0 {
			results = append(results, Result{RuleName: name, Scope: ScopeSingleDocument, Severity: SeverityInfo, Passed: true})
		}
		return results
	}}
}

// roundAmounts reports leaf amounts ending in an even thousand, a common
// sign of estimates slipping into booked figures.
func roundAmounts() Rule {
	const name = "suspiciously_round_amounts"
	return Rule{Name: name, Scope: ScopeSingleDocument, Severity: SeverityInfo, Check: func(rc *Context) []Result {
		round := 0
		for _, code := range rc.Codes() {
			if e, ok := rc.Entry(code); ok && (e.IsTotal || e.IsSubtotal) {
				continue
			}
			if d, _ := rc.Get(code); amount.IsRoundThousand(d) {
				round++
			}
		}
		if round == 0 {
			return []Result{{RuleName: name, Scope: ScopeSingleDocument, Severity: SeverityInfo, Passed: true}}
		}
		return []Result{{
			RuleName: name,
			Scope:    ScopeSingleDocument,
			Severity: SeverityInfo,
			Passed:   false,
			Detail:   fmt.Sprintf("%d line amounts end in an even thousand", round),
		}}
	}}
}

package core

// ActionType ledger action recorded in the journal
type ActionType int

const (
	ActionTypeDefault ActionType = iota
	ActionTypeCreateMarket
	ActionTypeSupply
	ActionTypeWithdraw
	ActionTypeBorrow
	ActionTypeRepay
	ActionTypeSupplyCollateral
	ActionTypeWithdrawCollateral
	ActionTypeLiquidate
	ActionTypeFlashLoan
	ActionTypeAccrueInterest
	ActionTypeSetAuthorization
	ActionTypeSetFee
	ActionTypeSetFeeRecipient
)

var actionNames = map[ActionType]string{
	ActionTypeCreateMarket:       "create_market",
	ActionTypeSupply:             "supply",
	ActionTypeWithdraw:           "withdraw",
	ActionTypeBorrow:             "borrow",
	ActionTypeRepay:              "repay",
	ActionTypeSupplyCollateral:   "supply_collateral",
	ActionTypeWithdrawCollateral: "withdraw_collateral",
	ActionTypeLiquidate:          "liquidate",
	ActionTypeFlashLoan:          "flash_loan",
	ActionTypeAccrueInterest:     "accrue_interest",
	ActionTypeSetAuthorization:   "set_authorization",
	ActionTypeSetFee:             "set_fee",
	ActionTypeSetFeeRecipient:    "set_fee_recipient",
}

func (a ActionType) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}

	return "default"
}

// ParseActionType reverse of String, ActionTypeDefault if unknown
func ParseActionType(s string) ActionType {
	for a, name := range actionNames {
		if name == s {
			return a
		}
	}

	return ActionTypeDefault
}

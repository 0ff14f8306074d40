package entity

// TimeLayout is the timestamp format carried by the upstream CSV exports,
// always interpreted as UTC.
const TimeLayout = "2006-01-02 15:04:05"

// AccountDescriptor describes the account entity. Accounts are independent
// and load first.
func AccountDescriptor() *Descriptor {
	return &Descriptor{
		Name:        "account",
		TableName:   "accounts",
		ConflictKey: "account_id",
		Columns: []Column{
			{Name: "account_id", Kind: KindString, MaxLen: 20},
			{Name: "account_type", Kind: KindInt64, Enum: AccountTypes()},
			{Name: "cash", Kind: KindDecimal, Precision: 20, Scale: 2, Monetary: true},
			{Name: "frozen_cash", Kind: KindDecimal, Precision: 20, Scale: 2, Monetary: true},
			{Name: "market_value", Kind: KindDecimal, Precision: 20, Scale: 2, Monetary: true},
			{Name: "total_asset", Kind: KindDecimal, Precision: 20, Scale: 2, Monetary: true},
			{Name: "updated_at", Kind: KindTimestamp, Layout: TimeLayout},
		},
		Checks: []Check{
			{Target: "total_asset", Terms: []string{"cash", "frozen_cash", "market_value"}, Op: OpSum},
		},
	}
}

// TransactionDescriptor describes the transaction entity. Transactions
// reference accounts by account_id and load after them.
func TransactionDescriptor() *Descriptor {
	return &Descriptor{
		Name:        "transaction",
		TableName:   "transactions",
		ConflictKey: "traded_id",
		Columns: []Column{
			{Name: "account_id", Kind: KindString, MaxLen: 20},
			{Name: "account_type", Kind: KindInt64, Enum: AccountTypes()},
			{Name: "traded_id", Kind: KindString, MaxLen: 50},
			{Name: "stock_code", Kind: KindString, MaxLen: 10},
			{Name: "traded_time", Kind: KindTimestamp, Layout: TimeLayout},
			{Name: "traded_price", Kind: KindDecimal, Precision: 20, Scale: 2, Monetary: true},
			{Name: "traded_volume", Kind: KindInt64, Quantity: true},
			{Name: "traded_amount", Kind: KindDecimal, Precision: 20, Scale: 2, Monetary: true},
			{Name: "strategy_name", Kind: KindString, MaxLen: 50},
			{Name: "order_remark", Kind: KindString, MaxLen: 100, Nullable: true},
			{Name: "direction", Kind: KindInt64, Enum: Directions()},
			{Name: "offset_flag", Kind: KindInt64, Enum: OffsetFlags()},
			{Name: "created_at", Kind: KindTimestamp, Layout: TimeLayout},
			{Name: "updated_at", Kind: KindTimestamp, Layout: TimeLayout},
		},
		Parent:              "account",
		ParentKeyColumn:     "account_id",
		ReferencedKeyColumn: "account_id",
		Checks: []Check{
			{Target: "traded_amount", Terms: []string{"traded_price", "traded_volume"}, Op: OpProduct},
		},
	}
}

// NewDefaultRegistry builds the registry the production pipeline runs with:
// accounts first, then their transactions.
func NewDefaultRegistry() (*Registry, error) {
	r := NewRegistry()
	if err := r.Register(AccountDescriptor()); err != nil {
		return nil, err
	}
	if err := r.Register(TransactionDescriptor()); err != nil {
		return nil, err
	}
	return r, nil
}

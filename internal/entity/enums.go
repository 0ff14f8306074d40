package entity

// Account classification codes carried by upstream trading systems.
const (
	AccountTypeFuture       int64 = 1
	AccountTypeSecurity     int64 = 2
	AccountTypeCredit       int64 = 3
	AccountTypeFutureOption int64 = 5
	AccountTypeStockOption  int64 = 6
	AccountTypeHugangtong   int64 = 7
	AccountTypeShengangtong int64 = 11
)

// Offset flags use ASCII code values for compatibility with the upstream
// trading systems.
const (
	OffsetOpen            int64 = 48
	OffsetClose           int64 = 49
	OffsetForceClose      int64 = 50
	OffsetCloseToday      int64 = 51
	OffsetCloseYesterday  int64 = 52
	OffsetForceOff        int64 = 53
	OffsetLocalForceClose int64 = 54
)

// Trade direction. Stock trades use DirectionNA; futures use long/short.
const (
	DirectionNA    int64 = 0
	DirectionLong  int64 = 48
	DirectionShort int64 = 49
)

// AccountTypes is the closed value set for the account_type column.
func AccountTypes() []int64 {
	return []int64{
		AccountTypeFuture,
		AccountTypeSecurity,
		AccountTypeCredit,
		AccountTypeFutureOption,
		AccountTypeStockOption,
		AccountTypeHugangtong,
		AccountTypeShengangtong,
	}
}

// OffsetFlags is the closed value set for the offset_flag column.
func OffsetFlags() []int64 {
	return []int64{
		OffsetOpen,
		OffsetClose,
		OffsetForceClose,
		OffsetCloseToday,
		OffsetCloseYesterday,
		OffsetForceOff,
		OffsetLocalForceClose,
	}
}

// Directions is the closed value set for the direction column.
func Directions() []int64 {
	return []int64{DirectionNA, DirectionLong, DirectionShort}
}

package csv

// ColumnCount is the fixed width of a customer row.
const ColumnCount = 21

// Headers are the column labels written on export, columns A through U.
// Empty labels mark reserved columns.
var Headers = []string{
	"ステータス", // A
	"",      // B
	"",      // C
	"担当名",   // D
	"お客様名",  // E
	"フリガナ",  // F
	"郵便番号",  // G
	"住所",    // H
	"住所2",   // I
	"地域",    // J
	"電話番号",  // K
	"携帯番号",  // L
	"獲得経路",  // M
	"契約日",   // N
	"登録日",   // O
	"",      // P
	"",      // Q
	"",      // R
	"",      // S
	"",      // T
	"備考",    // U
}

// ColumnMap holds the zero-based position of each customer field.
type ColumnMap struct {
	Status       int
	SalesRep     int
	Name         int
	NameKana     int
	PostalCode   int
	Address      int
	Address2     int
	Region       int
	Phone        int
	Mobile       int
	Source       int
	ContractDate int
	CreatedAt    int
	Notes        int
}

var DefaultColumns = ColumnMap{
	Status:       0,
	SalesRep:     3,
	Name:         4,
	NameKana:     5,
	PostalCode:   6,
	Address:      7,
	Address2:     8,
	Region:       9,
	Phone:        10,
	Mobile:       11,
	Source:       12,
	ContractDate: 13,
	CreatedAt:    14,
	Notes:        20,
}

// Normalize pads or truncates fields to exactly ColumnCount entries.
func Normalize(fields []string) []string {
	row := make([]string, ColumnCount)
	copy(row, fields)
	return row
}

package dialect

type TiDB struct {
	*MySQL
}

func NewTiDBDialect() Dialect {
	return &TiDB{
		MySQL: NewMySQLDialect().(*MySQL),
	}
}

func (t *TiDB) Name() string {
	return "tidb"
}

// Sequences are available from TiDB 4.0.
func (t *TiDB) SupportsSequence() bool {
	return true
}

func (t *TiDB) BuildSequenceGeneratorSQL(name string) (string, error) {
	return "SELECT NEXTVAL(" + name + ")", nil
}

// IsTimeoutError adds TiDB's own max_execution_time code.
func (t *TiDB) IsTimeoutError(code ErrorCode) bool {
	return code.Vendor == 8175 || t.MySQL.IsTimeoutError(code)
}

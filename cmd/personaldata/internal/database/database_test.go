package database

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
)

func newSQLiteDriver(t *testing.T) Driver {
	t.Helper()

	cfg := Config{
		ConnectionString: "sqlite://" + filepath.Join(t.TempDir(), "users.db"),
		MaxOpenConns:     1,
		MaxIdleConns:     1,
		ConnMaxLifetime:  time.Minute * 5,
	}
	driver, err := NewDriver(cfg)
	if err != nil {
		t.Fatalf("failed to create driver: %v", err)
	}
	if err := driver.Connect(context.Background()); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { driver.Close() })
	return driver
}

func seedUsers(t *testing.T, driver Driver) {
	t.Helper()

	ctx := context.Background()
	stmts := []string{
		`CREATE TABLE users (name TEXT, email TEXT, phone TEXT, ssn TEXT, password TEXT, ip TEXT, last_login DATETIME, age INTEGER)`,
		`INSERT INTO users VALUES ('Marlene Wood', 'hwestiii@att.net', '(473) 401-4253', '261-72-6780', 'K5?BMNv', '60ed:c396:2ff:244:bbd0:9208:26f2:93ea', '2019-11-14 06:14:24', 42)`,
		`INSERT INTO users VALUES ('Bob', NULL, NULL, NULL, NULL, '10.0.0.1', NULL, NULL)`,
	}
	for _, stmt := range stmts {
		if _, err := driver.Exec(ctx, stmt); err != nil {
			t.Fatalf("failed to exec %q: %v", stmt, err)
		}
	}
}

func TestDetectDialect(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    DialectType
		wantDSN string
		wantErr bool
	}{
		{name: "postgres url", input: "postgres://u:p@localhost/db", want: DialectPostgres, wantDSN: "postgres://u:p@localhost/db"},
		{name: "postgresql url", input: "postgresql://localhost/db", want: DialectPostgres, wantDSN: "postgresql://localhost/db"},
		{name: "postgres key value", input: "host=localhost dbname=db", want: DialectPostgres, wantDSN: "host=localhost dbname=db"},
		{name: "mysql url", input: "mysql://root@tcp(localhost:3306)/db", want: DialectMySQL, wantDSN: "root@tcp(localhost:3306)/db"},
		{name: "mysql dsn", input: "root:pw@tcp(db:3306)/holberton", want: DialectMySQL, wantDSN: "root:pw@tcp(db:3306)/holberton"},
		{name: "sqlite url", input: "sqlite://data/users.db", want: DialectSQLite, wantDSN: "data/users.db"},
		{name: "sqlite memory", input: "sqlite://:memory:", want: DialectSQLite, wantDSN: "file::memory:?mode=memory&cache=shared"},
		{name: "sqlite file", input: "users.sqlite3", want: DialectSQLite, wantDSN: "users.sqlite3"},
		{name: "empty", input: "", wantErr: true},
		{name: "unknown", input: "redis://localhost", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dialect, dsn, err := detectDialect(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("detectDialect(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if dialect != tt.want {
				t.Errorf("dialect = %v, want %v", dialect, tt.want)
			}
			if dsn != tt.wantDSN {
				t.Errorf("dsn = %q, want %q", dsn, tt.wantDSN)
			}
		})
	}
}

func TestBuildConnectionString_MySQL(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		wantAddr string
	}{
		{name: "host without port", host: "localhost", wantAddr: "localhost:3306"},
		{name: "host with port", host: "db.internal:3307", wantAddr: "db.internal:3307"},
		{name: "empty host", host: "", wantAddr: "localhost:3306"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn, err := BuildConnectionString(DBConfig{
				Connection: "mysql",
				Username:   "root",
				Password:   "s3cr;et",
				Host:       tt.host,
				Name:       "holberton",
			})
			if err != nil {
				t.Fatalf("BuildConnectionString() error = %v", err)
			}

			parsed, err := mysql.ParseDSN(dsn)
			if err != nil {
				t.Fatalf("ParseDSN(%q) error = %v", dsn, err)
			}
			if parsed.User != "root" || parsed.Passwd != "s3cr;et" {
				t.Errorf("credentials = %q/%q", parsed.User, parsed.Passwd)
			}
			if parsed.Addr != tt.wantAddr {
				t.Errorf("Addr = %q, want %q", parsed.Addr, tt.wantAddr)
			}
			if parsed.DBName != "holberton" {
				t.Errorf("DBName = %q, want holberton", parsed.DBName)
			}
			if !parsed.ParseTime {
				t.Error("Expected parseTime to be enabled")
			}

			dialect, _, err := detectDialect(dsn)
			if err != nil || dialect != DialectMySQL {
				t.Errorf("detectDialect(%q) = %v, %v", dsn, dialect, err)
			}
		})
	}
}

func TestBuildConnectionString_Postgres(t *testing.T) {
	dsn, err := BuildConnectionString(DBConfig{
		Connection: "postgres",
		Username:   "app",
		Password:   "p@ss word",
		Host:       "db:5432",
		Name:       "holberton",
	})
	if err != nil {
		t.Fatalf("BuildConnectionString() error = %v", err)
	}

	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("url.Parse(%q) error = %v", dsn, err)
	}
	if pw, _ := u.User.Password(); pw != "p@ss word" {
		t.Errorf("password = %q", pw)
	}
	if u.Host != "db:5432" || u.Path != "/holberton" {
		t.Errorf("unexpected url %q", dsn)
	}
	if dialect, _, _ := detectDialect(dsn); dialect != DialectPostgres {
		t.Errorf("detectDialect = %v, want postgres", dialect)
	}
}

func TestBuildConnectionString_Errors(t *testing.T) {
	if _, err := BuildConnectionString(DBConfig{Connection: "mysql"}); err == nil {
		t.Error("Expected error for missing database name")
	}
	if _, err := BuildConnectionString(DBConfig{Connection: "oracle", Name: "db"}); err == nil {
		t.Error("Expected error for unsupported connection")
	}
	dsn, err := BuildConnectionString(DBConfig{Connection: "sqlite", Name: "users.db"})
	if err != nil || dsn != "sqlite://users.db" {
		t.Errorf("sqlite dsn = %q, %v", dsn, err)
	}
}

func TestStreamRows(t *testing.T) {
	driver := newSQLiteDriver(t)
	seedUsers(t, driver)

	var got []string
	err := StreamRows(context.Background(), driver, "users", func(r Row) error {
		got = append(got, r.Format("; "))
		return nil
	})
	if err != nil {
		t.Fatalf("StreamRows() error = %v", err)
	}

	want := []string{
		"name=Marlene Wood; email=hwestiii@att.net; phone=(473) 401-4253; ssn=261-72-6780; password=K5?BMNv; ip=60ed:c396:2ff:244:bbd0:9208:26f2:93ea; last_login=2019-11-14 06:14:24; age=42",
		"name=Bob; email=NULL; phone=NULL; ssn=NULL; password=NULL; ip=10.0.0.1; last_login=NULL; age=NULL",
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d rows, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStreamRows_StopsOnCallbackError(t *testing.T) {
	driver := newSQLiteDriver(t)
	seedUsers(t, driver)

	stop := errors.New("stop")
	calls := 0
	err := StreamRows(context.Background(), driver, "users", func(Row) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("Expected callback error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestStreamRows_InvalidTableName(t *testing.T) {
	driver := newSQLiteDriver(t)

	invalidNames := []string{
		"",
		"users; DROP TABLE users;--",
		"table-with-dash",
		"1startwithnum",
	}

	for _, name := range invalidNames {
		t.Run(name, func(t *testing.T) {
			err := StreamRows(context.Background(), driver, name, func(Row) error { return nil })
			if err == nil {
				t.Errorf("Expected error for invalid table name %q", name)
			}
		})
	}
}

func TestStreamRows_MissingTable(t *testing.T) {
	driver := newSQLiteDriver(t)

	err := StreamRows(context.Background(), driver, "users", func(Row) error { return nil })
	if err == nil {
		t.Error("Expected error for missing table")
	}
}

func TestTableExists(t *testing.T) {
	driver := newSQLiteDriver(t)
	seedUsers(t, driver)
	ctx := context.Background()

	exists, err := driver.TableExists(ctx, "users")
	if err != nil || !exists {
		t.Errorf("TableExists(users) = %v, %v", exists, err)
	}
	exists, err = driver.TableExists(ctx, "accounts")
	if err != nil || exists {
		t.Errorf("TableExists(accounts) = %v, %v", exists, err)
	}
	if _, err := driver.TableExists(ctx, "users;--"); err == nil {
		t.Error("Expected error for invalid table name")
	}
}

func TestRowFormat(t *testing.T) {
	tests := []struct {
		name   string
		row    Row
		joiner string
		want   string
	}{
		{
			name:   "two columns",
			row:    Row{Columns: []string{"name", "email"}, Values: []string{"Bob", "b@x.com"}},
			joiner: "; ",
			want:   "name=Bob; email=b@x.com",
		},
		{
			name:   "empty row",
			row:    Row{},
			joiner: "; ",
			want:   "",
		},
		{
			name:   "custom joiner",
			row:    Row{Columns: []string{"a", "b"}, Values: []string{"1", "2"}},
			joiner: ",",
			want:   "a=1,b=2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.row.Format(tt.joiner); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		dialect DialectType
		want    string
	}{
		{DialectPostgres, `"users"`},
		{DialectMySQL, "`users`"},
		{DialectSQLite, `"users"`},
	}
	for _, tt := range tests {
		if got := quoteIdentifier(tt.dialect, "users"); got != tt.want {
			t.Errorf("quoteIdentifier(%s) = %s, want %s", tt.dialect, got, tt.want)
		}
	}
}

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "simple lowercase", input: "users", want: true},
		{name: "with underscore", input: "user_data", want: true},
		{name: "start with underscore", input: "_users", want: true},
		{name: "alphanumeric", input: "user2", want: true},
		{name: "empty string", input: "", want: false},
		{name: "starts with number", input: "1users", want: false},
		{name: "contains dot", input: "user.data", want: false},
		{name: "contains quote", input: "users'", want: false},
		{name: "too long", input: strings.Repeat("a", 65), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isValidIdentifier(tt.input); got != tt.want {
				t.Errorf("isValidIdentifier(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// Package testdb provides a PostgreSQL database for integration tests.
//
// Tests get a migrated database from Open. When DATABASE_URL is set that
// server is used, otherwise an embedded PostgreSQL instance is started on
// first use and shared by every test in the package binary. Packages that use
// the embedded server should stop it from TestMain:
//
//	func TestMain(m *testing.M) {
//		code := m.Run()
//		testdb.Stop()
//		os.Exit(code)
//	}
//
// Individual tests isolate their writes with WithTx or clear the tables with
// Reset.
package testdb

package database

import "testing"

func TestMongoDatabaseName(t *testing.T) {
	cases := map[string]string{
		"mongodb://localhost:27017":                          defaultMongoDatabase,
		"mongodb://localhost:27017/":                         defaultMongoDatabase,
		"mongodb://localhost:27017/audit":                    "audit",
		"mongodb+srv://u:p@cluster.example.net/events?w=1":   "events",
		"mongodb+srv://u:p@cluster.example.net/?retryWrites": defaultMongoDatabase,
	}
	for uri, want := range cases {
		if got := MongoDatabaseName(uri); got != want {
			t.Fatalf("MongoDatabaseName(%q): want=%q got=%q", uri, want, got)
		}
	}
}

package template

import (
	"fmt"
	"testing"

	"github.com/lex00/wetwire-aurora-go/database"
	"github.com/lex00/wetwire-aurora-go/pending"
	"github.com/lex00/wetwire-aurora-go/stack"
)

// benchStack declares n brokered clusters on one stack.
func benchStack(b *testing.B, n int) *stack.Stack {
	b.Helper()
	s := stack.New("bench")
	for i := 0; i < n; i++ {
		_, err := database.New(s, fmt.Sprintf("db-%d", i), database.ClusterSpec{
			Description:    "Bench",
			SubnetIDs:      pending.Strings("subnet-a", "subnet-b"),
			MasterUsername: "admin",
			MasterPassword: pending.NewSecret("dbPassword", "x"),
			DatabaseName:   "bench",
			Access:         database.Brokered{Proxy: database.ProxyConfig{IAM: true, SecretARN: "arn:secret"}},
		}, database.AdminRole{ARN: pending.Known("arn:role")})
		if err != nil {
			b.Fatal(err)
		}
	}
	return s
}

// BenchmarkBuild benchmarks building templates with varying cluster counts.
func BenchmarkBuild(b *testing.B) {
	for _, size := range []int{1, 10, 50} {
		b.Run(fmt.Sprintf("clusters_%d", size), func(b *testing.B) {
			s := benchStack(b, size)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := NewBuilder(s).Build(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkToJSON benchmarks JSON serialization of a built template.
func BenchmarkToJSON(b *testing.B) {
	for _, size := range []int{1, 10, 50} {
		b.Run(fmt.Sprintf("clusters_%d", size), func(b *testing.B) {
			tmpl, err := NewBuilder(benchStack(b, size)).Build()
			if err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := ToJSON(tmpl); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

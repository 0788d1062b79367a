package pool

import "github.com/okian/bookpickr/internal/domain/model"

var defaultBooks = []struct{ title, author string }{ //nolint:gochecknoglobals // static default pool
	{"1984", "George Orwell"},
	{"Pride and Prejudice", "Jane Austen"},
	{"To Kill a Mockingbird", "Harper Lee"},
	{"The Great Gatsby", "F. Scott Fitzgerald"},
	{"Moby-Dick", "Herman Melville"},
	{"Brave New World", "Aldous Huxley"},
	{"The Catcher in the Rye", "J.D. Salinger"},
	{"The Hobbit", "J.R.R. Tolkien"},
	{"Jane Eyre", "Charlotte Brontë"},
	{"Crime and Punishment", "Fyodor Dostoevsky"},
}

// Default returns a fresh copy of the built-in pool of ten classics.
func Default() model.Pool {
	p := make(model.Pool, len(defaultBooks))
	for i, b := range defaultBooks {
		p[i] = model.CandidateItem{ID: i + 1, Title: b.title, Author: b.author}
	}
	return p
}

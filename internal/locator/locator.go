package locator

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
)

// queryJS returns every element matching a descriptor. Accessible names are an
// approximation of the browser's computation: aria-labelledby, aria-label,
// associated labels, rendered text, alt, title, placeholder.
const queryJS = `(kind, role, want, exact, css) => {
	const norm = s => (s || '').replace(/\s+/g, ' ').trim();
	const matches = value => {
		const v = norm(value);
		const w = norm(want);
		if (exact) return v === w;
		return v.toLowerCase().includes(w.toLowerCase());
	};

	const textTypes = ['', 'text', 'email', 'password', 'search', 'tel', 'url', 'number'];
	const implicitRole = el => {
		const tag = el.tagName.toLowerCase();
		switch (tag) {
			case 'button': return 'button';
			case 'a': return el.hasAttribute('href') ? 'link' : '';
			case 'h1': case 'h2': case 'h3': case 'h4': case 'h5': case 'h6': return 'heading';
			case 'textarea': return 'textbox';
			case 'select': return 'combobox';
			case 'img': return 'img';
			case 'input': {
				const type = (el.getAttribute('type') || '').toLowerCase();
				if (['button', 'submit', 'reset', 'image'].includes(type)) return 'button';
				if (type === 'checkbox' || type === 'radio') return type;
				if (textTypes.includes(type)) return 'textbox';
				return '';
			}
		}
		return '';
	};
	const roleOf = el => {
		const explicit = norm(el.getAttribute('role'));
		return explicit ? explicit.split(' ')[0] : implicitRole(el);
	};
	const rendered = el => norm(el.innerText !== undefined ? el.innerText : el.textContent);

	const accessibleName = el => {
		const ids = el.getAttribute('aria-labelledby');
		if (ids) {
			const text = norm(ids.split(/\s+/).map(id => {
				const ref = document.getElementById(id);
				return ref ? rendered(ref) : '';
			}).join(' '));
			if (text) return text;
		}
		const label = norm(el.getAttribute('aria-label'));
		if (label) return label;
		if (el.labels && el.labels.length) {
			const text = norm(Array.from(el.labels).map(rendered).join(' '));
			if (text) return text;
		}
		const tag = el.tagName.toLowerCase();
		if (tag === 'input') {
			const type = (el.getAttribute('type') || '').toLowerCase();
			if (['button', 'submit', 'reset'].includes(type) && norm(el.value)) return norm(el.value);
		} else if (tag !== 'textarea' && tag !== 'select') {
			const text = rendered(el);
			if (text) return text;
		}
		for (const attr of ['alt', 'title', 'placeholder']) {
			const v = norm(el.getAttribute(attr));
			if (v) return v;
		}
		return '';
	};

	switch (kind) {
		case 'selector':
			return Array.from(document.querySelectorAll(css));
		case 'placeholder':
			return Array.from(document.querySelectorAll('[placeholder]'))
				.filter(el => matches(el.getAttribute('placeholder')));
		case 'title':
			return Array.from(document.querySelectorAll('[title]'))
				.filter(el => matches(el.getAttribute('title')));
		case 'role':
			return Array.from(document.querySelectorAll('*'))
				.filter(el => roleOf(el) === role && (want === '' || matches(accessibleName(el))));
	}
	return [];
}`

// Locator is a Descriptor bound to a page. Every query runs against the live
// DOM, so a Locator stays valid across re-renders.
type Locator struct {
	page *rod.Page
	desc Descriptor
}

// New binds d to page without querying the DOM
func New(page *rod.Page, d Descriptor) *Locator {
	return &Locator{page: page, desc: d}
}

// Descriptor returns the description this locator resolves
func (l *Locator) Descriptor() Descriptor {
	return l.desc
}

func (l *Locator) String() string {
	return l.desc.String()
}

// All returns the elements currently matching. Zero matches is not an error.
func (l *Locator) All(ctx context.Context) (rod.Elements, error) {
	if err := l.desc.Validate(); err != nil {
		return nil, err
	}
	d := l.desc
	els, err := l.page.Context(ctx).ElementsByJS(rod.Eval(queryJS, string(d.Kind), d.Role, d.want(), d.Exact, d.CSS))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", d, err)
	}
	return els, nil
}

// First returns the first current match, or nil when nothing matches
func (l *Locator) First(ctx context.Context) (*rod.Element, error) {
	els, err := l.All(ctx)
	if err != nil || len(els) == 0 {
		return nil, err
	}
	return els.First(), nil
}

// FirstVisible returns the first current match that is rendered, or nil
func (l *Locator) FirstVisible(ctx context.Context) (*rod.Element, error) {
	els, err := l.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, el := range els {
		visible, err := el.Visible()
		if err != nil {
			continue
		}
		if visible {
			return el, nil
		}
	}
	return nil, nil
}

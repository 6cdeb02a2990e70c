package ebook

// stylesheet is the fixed presentational stylesheet embedded in every
// generated book. Not user-configurable.
const stylesheet = `body {
    margin: 0 5%;
    text-align: justify;
    font-family: serif;
    line-height: 1.4;
}

h1 {
    text-align: center;
    font-size: 2em;
    margin: 3em 0 1.5em 0;
    page-break-before: always;
}

h2 {
    text-align: center;
    font-size: 1.4em;
    margin: 2em 0 1.5em 0;
    page-break-before: always;
}

p {
    margin: 0;
    text-indent: 1.25em;
}

h2 + p:first-letter {
    font-size: 2.2em;
    line-height: 1;
    float: left;
    margin-right: 0.05em;
}

img.cover {
    display: block;
    margin: 0 auto;
    max-width: 100%;
    max-height: 100%;
}

hr {
    border: none;
    text-align: center;
    margin: 1.5em 0;
}

hr:after {
    content: "\2042";
}
`

// Package bf implements a Brainfuck front-end and tree-walking interpreter.
//
// Source text is scanned into tokens by Tokenize, which keeps only the eight
// command characters (> < + - . , [ ]) and brackets the stream with
// ProgramStart/ProgramEnd sentinels. Parse turns the tokens into a tree of
// instructions where every matched bracket pair becomes a Loop node. The
// interpreter walks that tree against a Machine: a fixed-size tape of byte
// cells and a data pointer.
//
// Cell arithmetic wraps modulo 256. Moving the data pointer off either end of
// the tape, or reading input after it is exhausted, stops execution with a
// *RuntimeError. Unbalanced brackets are reported as a *SyntaxError before
// anything runs.
package bf

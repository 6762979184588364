package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSTSImports(t *testing.T) {
	src := `
// import { db } from '../db/client'
/* import { db } from '../db/old' */
const msg = "import { db } from '../db/str'";
const tpl = ` + "`import { db } from '../db/tpl'`" + `;
import { db } from '../db/client';
import type { User } from './types';
import './side-effect';
export * from './barrel';
const lazy = await import('./lazy');
const legacy = require('./legacy');
`
	got := JSTSImports(src)
	assert.Equal(t, []string{
		"../db/client",
		"./types",
		"./side-effect",
		"./barrel",
		"./lazy",
		"./legacy",
	}, got)
}

func TestJSTSTemplateExpressions(t *testing.T) {
	// A require inside a template expression is real code.
	src := "const m = `prefix ${require('./inner')} suffix`;"
	assert.Equal(t, []string{"./inner"}, JSTSImports(src))

	// Regex literals containing quotes must not open string state.
	src2 := `
const re = /['"]import/;
import { a } from './after-regex';
`
	assert.Equal(t, []string{"./after-regex"}, JSTSImports(src2))
}

func TestPythonImports(t *testing.T) {
	src := `
"""Docstring with a line that says
import fake_module
"""
# import commented
import os
import sys, json as j
from collections import OrderedDict
from app.services import user
from . import sibling
from .relative import thing
s = "import in_string"
`
	got := PythonImports(src)
	assert.Equal(t, []string{
		"os", "sys", "json", "collections", "app.services", "relative",
	}, got)
}

func TestGoImports(t *testing.T) {
	src := `package main

// import "commented/out"

import (
	"fmt"
	stdlog "log"
	"github.com/example/pkg"
)

import "single/path"

var s = ` + "`import \"raw/string\"`" + `
var d = "import \"quoted/string\""
`
	got := GoImports(src)
	assert.Equal(t, []string{
		"fmt", "log", "github.com/example/pkg", "single/path",
	}, got)
}

func TestRustImports(t *testing.T) {
	src := `
// use commented::out;
/* outer /* nested */ use still::comment; */
use std::collections::HashMap;
use std::{io, fs as filesystem};
use app::handlers::*;
extern crate serde;
let raw = r#"use raw::string;"#;
let s = "use quoted::string;";
`
	got := RustImports(src)
	assert.Equal(t, []string{
		"std::collections::HashMap",
		"std::io",
		"std::fs",
		"app::handlers::*",
		"serde",
	}, got)
}

func TestJavaImports(t *testing.T) {
	src := `
// import com.commented.Out;
/* import com.blocked.Out; */
import java.util.List;
import static org.junit.Assert.*;
import com.example.service.*;

public class Thing {}
`
	got := JavaImports(src)
	assert.Equal(t, []string{
		"java.util.List", "org.junit.Assert.*", "com.example.service.*",
	}, got)
}

func TestDartImports(t *testing.T) {
	src := `
// import 'package:commented/out.dart';
import 'package:flutter/material.dart';
export 'src/widgets.dart';
part 'thing.g.dart';
var s = "import 'package:fake/str.dart';";
var r = r'import "package:raw/str.dart";';
`
	got := DartImports(src)
	assert.Equal(t, []string{
		"package:flutter/material.dart", "src/widgets.dart", "thing.g.dart",
	}, got)
}

func TestKotlinImports(t *testing.T) {
	src := `
/* outer /* nested kotlin comment */ import com.hidden.Thing */
import com.example.app.Service
import com.example.util.*
val s = "import com.fake.InString"
`
	got := KotlinImports(src)
	assert.Equal(t, []string{
		"com.example.app.Service", "com.example.util.*",
	}, got)
}

func TestSwiftImports(t *testing.T) {
	src := `
// import Commented
import Foundation
@testable import AppCore
import struct Foundation.Date
let s = "import InString"
`
	got := SwiftImports(src)
	assert.Equal(t, []string{"Foundation", "AppCore"}, got)
}

func TestCSharpImports(t *testing.T) {
	src := `
// using Commented.Out;
global using System;
using System.Collections.Generic;
using static System.Math;
using Alias = App.Services.UserService;
using App.Data;

namespace App.Web;

using App.AfterNamespace;
`
	got := CSharpImports(src)
	assert.Equal(t, []string{
		"System", "System.Collections.Generic", "System.Math",
		"App.Services.UserService", "App.Data",
	}, got)
}

func TestCSharpVerbatimStrings(t *testing.T) {
	src := `
var path = @"C:\temp\""quoted""\more";
using App.Real;
class C {}
`
	assert.Equal(t, []string{"App.Real"}, CSharpImports(src))
}

func TestPHPImports(t *testing.T) {
	src := `<?php
// use App\Commented\Out;
# use App\Hashed\Out;
use App\Services\UserService;
use App\Models\{User, Role as R};
use function App\Helpers\format;
require_once 'bootstrap/app.php';
$sql = <<<SQL
SELECT * FROM users;
SQL;
`
	got := PHPImports(src)
	assert.Equal(t, []string{
		`App\Services\UserService`,
		`App\Models\User`,
		`App\Models\Role`,
		`App\Helpers\format`,
		"bootstrap/app.php",
	}, got)
}

func TestRubyImports(t *testing.T) {
	src := `
# require 'commented'
=begin
require 'block_commented'
=end
require 'json'
require_relative '../lib/helper'
autoload :Parser, 'app/parser'
sql = <<~SQL
  SELECT * FROM events
SQL
load 'tasks.rb'
`
	got := RubyImports(src)
	assert.Equal(t, []string{
		"json", "../lib/helper", "app/parser", "tasks.rb",
	}, got)
}

func TestFactsSkipsUnextractable(t *testing.T) {
	dir := t.TempDir()

	// Unknown extension.
	unknown := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(unknown, []byte("import os"), 0o644))
	assert.Empty(t, Facts(unknown))

	// Binary content.
	binary := filepath.Join(dir, "blob.js")
	require.NoError(t, os.WriteFile(binary, []byte("import 'x'\x00\x01\x02"), 0o644))
	assert.Empty(t, Facts(binary))

	// Oversized file.
	big := filepath.Join(dir, "big.py")
	require.NoError(t, os.WriteFile(big, []byte("import os\n"+strings.Repeat("#", MaxFileSize)), 0o644))
	assert.Empty(t, Facts(big))

	// Symlink.
	target := filepath.Join(dir, "real.py")
	require.NoError(t, os.WriteFile(target, []byte("import os\n"), 0o644))
	link := filepath.Join(dir, "link.py")
	require.NoError(t, os.Symlink(target, link))
	assert.Empty(t, Facts(link))

	// A plain readable file still works.
	assert.Equal(t, []string{"os"}, Facts(target))
}

func TestFromSource(t *testing.T) {
	assert.Equal(t, []string{"fmt"}, FromSource("main.go", []byte("package m\nimport \"fmt\"\n")))
	assert.Nil(t, FromSource("README.md", []byte("import nothing")))
}

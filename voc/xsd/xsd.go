// Copyright 2025 The Noesis Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package xsd contains constants of the XML Schema datatype vocabulary.
package xsd

import "github.com/noesisdb/noesis/voc"

func init() {
	voc.RegisterPrefix(Prefix, NS)
}

const (
	NS     = `http://www.w3.org/2001/XMLSchema#`
	Prefix = `xsd:`
)

const (
	String   = NS + `string`
	Boolean  = NS + `boolean`
	Integer  = NS + `integer`
	Long     = NS + `long`
	Int      = NS + `int`
	Decimal  = NS + `decimal`
	Double   = NS + `double`
	Float    = NS + `float`
	DateTime = NS + `dateTime`
	Date     = NS + `date`
	Time     = NS + `time`
	AnyURI   = NS + `anyURI`
)

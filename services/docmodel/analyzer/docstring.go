// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzer

import (
	"context"
	"strings"

	"github.com/AleutianAI/AleutianDocs/services/docmodel/env"
	"github.com/AleutianAI/AleutianDocs/services/docmodel/model"
)

// NewDocstringAnalyzer returns the default declaration analyzer: it turns
// a declaration's attached doc string into a documentation record.
// Declarations without a doc string are reported as non-documentable.
//
// Budget accounting is one step per declaration plus one per line of doc
// text, so pathological doc blocks still land under the run's ceiling.
func NewDocstringAnalyzer() DeclAnalyzer {
	return AnalyzerFunc(func(ctx context.Context, decl string, info env.ConstantInfo, actx *AnalysisContext) (*model.DocRecord, error) {
		if err := actx.Budget.Step(1); err != nil {
			return nil, err
		}
		if info.Doc == "" {
			return nil, nil
		}

		lines := strings.Split(info.Doc, "\n")
		if err := actx.Budget.Step(int64(len(lines))); err != nil {
			return nil, err
		}
		doc := strings.TrimSpace(info.Doc)

		signature := decl
		if info.Kind != "" {
			signature = info.Kind + " " + decl
		}

		return &model.DocRecord{
			Name:      decl,
			Kind:      info.Kind,
			Signature: signature,
			Doc:       doc,
			Range:     info.Range,
		}, nil
	})
}

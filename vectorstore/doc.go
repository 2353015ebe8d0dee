// Copyright 2025-2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

Package vectorstore implements the VectorSubstrate: per-tenant collections of
(embedding, payload) tuples backed by Qdrant, plus the in-process pieces
needed to search them — document chunking, hybrid (dense + keyword) search
via Reciprocal Rank Fusion, optional cross-encoder re-ranking, and score
normalization across distance metrics.

# 核心接口/类型

  - VectorStore — 向量数据库统一接口（AddDocuments / Search / Delete / Update / Count）
  - QdrantStore — Qdrant REST 客户端实现，承载语义缓存与 RAG chunk 两个逻辑集合
  - VectorIndex — 向量索引接口（Flat / HNSW 实现），供无外部向量库场景使用
  - DocumentChunker — 固定大小、递归、语义、文档感知四种分块策略
  - HybridRetriever — BM25 关键词 + 向量检索的 RRF 融合
  - Reranker — 融合结果之上的可选交叉编码器重排序

# 主要能力

  - 向量存储后端：InMemory（测试/无外部依赖场景）与 Qdrant（生产）
  - 混合检索：Reciprocal Rank Fusion（k≈60），按原始向量分数打破平局
  - 相似度分数归一化：cosine/dot-product/euclidean 统一映射到 [0,1]
  - 语义缓存：基于向量相似度的查询结果缓存（SemanticCache）
*/
package vectorstore
